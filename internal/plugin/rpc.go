package plugin

import (
	"fmt"
	"net/rpc"
	"os/exec"

	goplugin "github.com/hashicorp/go-plugin"

	"github.com/flowkit/engine/internal/nodeexec"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/types"
)

// handshake is the shared magic cookie an installed node-type plugin binary
// and this process must agree on before a connection is trusted. Mirrors
// go-plugin's own documented handshake pattern.
var handshake = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "FLOWKIT_NODE_PLUGIN",
	MagicCookieValue: "flowkit-node-executor",
}

// InvokeArgs is the RPC payload sent to an out-of-process node executor.
type InvokeArgs struct {
	NodeID string
	Inputs map[string]interface{}
}

// InvokeReply is the RPC payload received back from an out-of-process node
// executor.
type InvokeReply struct {
	Outputs map[string]interface{}
	Err     string
}

// nodeExecutorRPC is the interface an installed plugin binary implements
// server-side, over net/rpc.
type nodeExecutorRPC interface {
	Invoke(args InvokeArgs, reply *InvokeReply) error
}

// rpcClient adapts a net/rpc connection to a Go-native interface a
// nodeexec.NodeExecutor wrapper can call directly.
type rpcClient struct{ client *rpc.Client }

func (c *rpcClient) Invoke(args InvokeArgs) (InvokeReply, error) {
	var reply InvokeReply
	if err := c.client.Call("Plugin.Invoke", args, &reply); err != nil {
		return InvokeReply{}, err
	}
	if reply.Err != "" {
		return InvokeReply{}, fmt.Errorf("%s", reply.Err)
	}
	return reply, nil
}

// nodeExecutorPlugin is the go-plugin.Plugin implementation dispensed as
// "node_executor" by every installed node-type plugin binary.
type nodeExecutorPlugin struct{}

func (nodeExecutorPlugin) Server(*goplugin.MuxBroker) (interface{}, error) {
	return nil, fmt.Errorf("plugin: this process only hosts clients, not plugin servers")
}

func (nodeExecutorPlugin) Client(b *goplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &rpcClient{client: c}, nil
}

// externalExecutor adapts a running plugin subprocess into a
// nodeexec.NodeExecutor: every Invoke call is an RPC round trip. External
// node types never support rollback — a subprocess crash or restart would
// leave no state to undo against.
type externalExecutor struct {
	client *goplugin.Client
	remote *rpcClient
}

func (e *externalExecutor) Invoke(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
	reply, err := e.remote.Invoke(InvokeArgs{NodeID: ctx.NodeID(), Inputs: ctx.Inputs()})
	if err != nil {
		return nil, fmt.Errorf("external plugin: node %q: %w", ctx.NodeID(), err)
	}
	return nodeexec.Outputs(reply.Outputs), nil
}

func (e *externalExecutor) Rollback() (nodeexec.RollbackFunc, bool) { return nil, false }

// LaunchExternal starts cmdPath as an out-of-process go-plugin host and
// registers every node type in descs against reg, backed by RPC calls to
// that subprocess. The caller is responsible for keeping the returned
// *goplugin.Client alive (and eventually calling Kill) for as long as the
// registered node types may be invoked.
func LaunchExternal(reg *registry.Registry, descs []types.NodeTypeDescriptor, cmdPath string, args ...string) (*goplugin.Client, error) {
	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig: handshake,
		Plugins:         map[string]goplugin.Plugin{"node_executor": &nodeExecutorPlugin{}},
		Cmd:             exec.Command(cmdPath, args...),
	})

	rpcClientProto, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("plugin: launch %q: %w", cmdPath, err)
	}
	raw, err := rpcClientProto.Dispense("node_executor")
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("plugin: dispense node_executor from %q: %w", cmdPath, err)
	}
	remote, ok := raw.(*rpcClient)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("plugin: %q did not dispense a node_executor RPC client", cmdPath)
	}

	ext := &externalExecutor{client: client, remote: remote}
	for _, desc := range descs {
		reg.MustRegister(desc, ext)
	}
	return client, nil
}

// Command demo-conditional-execution walks through three conditional-
// routing scenarios against the workflow engine: single-branch routing,
// switch-based multi-way routing, and nested conditions. It exists to show
// the skip-cascade behavior of the condition and switch node types end to
// end, the way a reader would otherwise have to piece together from the
// engine's test suite.
package main

import (
	"context"
	"fmt"

	"github.com/flowkit/engine/internal/config"
	"github.com/flowkit/engine/internal/engine"
	"github.com/flowkit/engine/internal/graph"
	"github.com/flowkit/engine/internal/logging"
	"github.com/flowkit/engine/internal/nodes"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/types"
)

func main() {
	fmt.Println("=================================================")
	fmt.Println("Conditional Execution Demo")
	fmt.Println("=================================================")
	fmt.Println()

	demoAgeBasedRouting()
	demoSwitchRouting()
	demoNestedConditions()
}

func newExecutor() *engine.Executor {
	reg := registry.New()
	cfg := config.Default()
	nodes.RegisterBuiltins(reg, cfg)
	return engine.New(reg, cfg, logging.New(logging.DefaultConfig()))
}

func run(ex *engine.Executor, ns []types.Node, edges []types.Edge) (*engine.Result, error) {
	if edges == nil {
		// Derive one edge per reference binding; graph.New requires them.
		for _, n := range ns {
			for port, b := range n.Inputs {
				if b.IsRef {
					edges = append(edges, types.Edge{
						ID:           fmt.Sprintf("%s.%s->%s.%s", b.Ref.SourceNodeID, b.Ref.OutputName, n.ID, port),
						Source:       b.Ref.SourceNodeID,
						SourceOutput: b.Ref.OutputName,
						Target:       n.ID,
						TargetInput:  port,
					})
				}
			}
		}
	}
	g, err := graph.New(ns, edges)
	if err != nil {
		return nil, fmt.Errorf("building graph: %w", err)
	}
	result := ex.Execute(context.Background(), g, engine.Callbacks{})
	if result.Err != nil {
		return nil, result.Err
	}
	return result, nil
}

func printBranch(result *engine.Result, label, nodeID string) {
	outputs, executed := result.NodeOutputs[nodeID]
	if !executed {
		fmt.Printf("    - %s (not in active path)\n", label)
		return
	}
	if types.IsSkipped(outputs["value"]) {
		fmt.Printf("    - %s (skipped)\n", label)
		return
	}
	fmt.Printf("    - %s: %v\n", label, outputs["value"])
}

// demoAgeBasedRouting: age >= 18 -> profile_api -> sports_api, else education_api.
func demoAgeBasedRouting() {
	fmt.Println("DEMO 1: Age-Based API Routing")
	fmt.Println("----------------------------------")
	fmt.Println("Scenario: age >= 18 -> profile_api -> sports_api, else -> education_api")
	fmt.Println()

	ex := newExecutor()
	for _, age := range []float64{25, 15} {
		fmt.Printf("Testing with age = %.0f:\n", age)

		ns := []types.Node{
			{ID: "user_age", Type: "input_number", Inputs: map[string]types.Binding{"value": types.LiteralBinding(age)}},
			{ID: "is_adult", Type: "expression", Inputs: map[string]types.Binding{
				"input":      types.RefBinding("user_age", "value"),
				"expression": types.LiteralBinding("input >= 18"),
			}},
			{ID: "age_check", Type: "condition", Inputs: map[string]types.Binding{
				"value":     types.RefBinding("user_age", "value"),
				"predicate": types.RefBinding("is_adult", "result"),
			}},
			{ID: "profile_api", Type: "expression", Inputs: map[string]types.Binding{
				"input": types.RefBinding("age_check", "true"), "expression": types.LiteralBinding(`"fetched user profile"`),
			}},
			{ID: "sports_api", Type: "expression", Inputs: map[string]types.Binding{
				"input": types.RefBinding("profile_api", "result"), "expression": types.LiteralBinding(`"registered for sports"`),
			}},
			{ID: "education_api", Type: "expression", Inputs: map[string]types.Binding{
				"input": types.RefBinding("age_check", "false"), "expression": types.LiteralBinding(`"registered for education"`),
			}},
		}

		result, err := run(ex, ns, nil)
		if err != nil {
			fmt.Printf("  error: %v\n", err)
			continue
		}
		fmt.Println("  Results:")
		if outputs, ok := result.NodeOutputs["sports_api"]; ok {
			fmt.Printf("    - sports_api: %v\n", outputs["result"])
		}
		if outputs, ok := result.NodeOutputs["education_api"]; ok {
			fmt.Printf("    - education_api: %v\n", outputs["result"])
		}
		fmt.Println()
	}
	fmt.Println()
}

// demoSwitchRouting: route on an HTTP-status-like numeric code via switch's
// ordered case expressions.
func demoSwitchRouting() {
	fmt.Println("DEMO 2: HTTP Status Code Routing with Switch")
	fmt.Println("------------------------------------------------")
	fmt.Println("Scenario: route to a handler based on status_code")
	fmt.Println()

	ex := newExecutor()
	for _, code := range []float64{200, 404, 500} {
		fmt.Printf("Testing with status_code = %.0f:\n", code)

		ns := []types.Node{
			{ID: "status_code", Type: "input_number", Inputs: map[string]types.Binding{"value": types.LiteralBinding(code)}},
			{ID: "router", Type: "switch", Inputs: map[string]types.Binding{
				"value": types.RefBinding("status_code", "value"),
				"cases": types.LiteralBinding([]interface{}{
					"input == 200", "input == 404", "input >= 500",
				}),
			}},
		}

		result, err := run(ex, ns, nil)
		if err != nil {
			fmt.Printf("  error: %v\n", err)
			continue
		}
		if outputs, ok := result.NodeOutputs["router"]; ok {
			labels := []string{"success", "not_found", "server_error"}
			idx, _ := outputs["matched_index"].(float64)
			if int(idx) >= 0 && int(idx) < len(labels) {
				fmt.Printf("    matched case %d -> %s\n", int(idx), labels[int(idx)])
			} else {
				fmt.Println("    no case matched -> other")
			}
		}
		fmt.Println()
	}
	fmt.Println()
}

// demoNestedConditions: age >= 18 AND country == "US" -> special_offer;
// age >= 18 AND country != "US" -> standard_offer; age < 18 -> parental_consent.
func demoNestedConditions() {
	fmt.Println("DEMO 3: Nested Conditional Logic")
	fmt.Println("------------------------------------")
	fmt.Println("Scenario: age>=18 && country=='US' -> special offer, else branches")
	fmt.Println()

	ex := newExecutor()
	cases := []struct {
		age     float64
		country string
	}{
		{25, "US"},
		{25, "UK"},
		{15, "US"},
	}

	for _, tc := range cases {
		fmt.Printf("Testing with age = %.0f, country = %s:\n", tc.age, tc.country)

		ns := []types.Node{
			{ID: "user_age", Type: "input_number", Inputs: map[string]types.Binding{"value": types.LiteralBinding(tc.age)}},
			{ID: "user_country", Type: "input_text", Inputs: map[string]types.Binding{"value": types.LiteralBinding(tc.country)}},
			{ID: "is_adult", Type: "expression", Inputs: map[string]types.Binding{
				"input": types.RefBinding("user_age", "value"), "expression": types.LiteralBinding("input >= 18"),
			}},
			{ID: "age_check", Type: "condition", Inputs: map[string]types.Binding{
				"value": types.RefBinding("user_country", "value"), "predicate": types.RefBinding("is_adult", "result"),
			}},
			{ID: "is_us", Type: "expression", Inputs: map[string]types.Binding{
				"input": types.RefBinding("age_check", "true"), "expression": types.LiteralBinding(`input == "US"`),
			}},
			{ID: "country_check", Type: "condition", Inputs: map[string]types.Binding{
				"value": types.RefBinding("age_check", "true"), "predicate": types.RefBinding("is_us", "result"),
			}},
		}

		result, err := run(ex, ns, nil)
		if err != nil {
			fmt.Printf("  error: %v\n", err)
			continue
		}
		if outputs, ok := result.NodeOutputs["country_check"]; ok && !types.IsSkipped(outputs["true"]) {
			fmt.Println("    -> special offer applied")
		} else if ok && !types.IsSkipped(outputs["false"]) {
			fmt.Println("    -> standard offer applied")
		} else if outputs, ok := result.NodeOutputs["age_check"]; ok && types.IsSkipped(outputs["true"]) {
			fmt.Println("    -> parental consent required")
		}
		fmt.Println()
	}
}

package compiler

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/appcore/internal/ir"
)

// Key suffixes of actions derived from resource methods.
const (
	SuffixList   = "List"
	SuffixHook   = "Hook"
	SuffixSearch = "Search"
	SuffixCreate = "Create"
)

// Trigger operation types.
const (
	TriggerTypePolling = "polling"
	TriggerTypeHook    = "hook"
)

// CompileApp normalizes a raw app definition into its compiled schema.
//
// Every resource method becomes an action (fooList, fooHook, fooSearch,
// fooCreate) and every authored action linked to a resource through
// operation.resource is enriched from it. Values present on the action always
// win over values derived from the resource.
//
// The raw definition is never modified: everything in the result is a deep
// copy, so callers may compile the same definition repeatedly and compare.
func CompileApp(raw *ir.AppDefinition) (*ir.CompiledSchema, error) {
	if raw == nil {
		return nil, &CompileError{Field: "app", Message: "app definition is nil"}
	}

	schema := &ir.CompiledSchema{
		Triggers: make(map[string]ir.Action),
		Searches: make(map[string]ir.Action),
		Creates:  make(map[string]ir.Action),
	}

	for _, key := range slices.Sorted(maps.Keys(raw.Resources)) {
		if err := compileResource(schema, key, raw.Resources[key], raw.Resources); err != nil {
			return nil, err
		}
	}

	// Authored actions are applied after derived ones so a hand-written
	// "fooList" replaces the generated one.
	if err := compileLinked(schema.Triggers, "triggers", raw.Triggers, raw.Resources, linkTrigger); err != nil {
		return nil, err
	}
	if err := compileLinked(schema.Searches, "searches", raw.Searches, raw.Resources, linkGetter); err != nil {
		return nil, err
	}
	if err := compileLinked(schema.Creates, "creates", raw.Creates, raw.Resources, linkGetter); err != nil {
		return nil, err
	}

	return schema, nil
}

// MustCompileApp is like CompileApp but panics on error.
// Use only in tests or with definitions known to be valid.
func MustCompileApp(raw *ir.AppDefinition) *ir.CompiledSchema {
	schema, err := CompileApp(raw)
	if err != nil {
		panic(err)
	}
	return schema
}

func compileResource(schema *ir.CompiledSchema, key string, res ir.Resource, resources map[string]ir.Resource) error {
	for _, m := range res.NamedMethods() {
		if ref := m.Method.Operation.Resource; ref != "" {
			if _, ok := resources[ref]; !ok {
				return &CompileError{
					Field:   fmt.Sprintf("resources.%s.%s.operation.resource", key, m.Name),
					Message: fmt.Sprintf("unknown resource %q", ref),
				}
			}
		}
	}

	if res.List != nil {
		schema.Triggers[key+SuffixList] = deriveAction(key+SuffixList, res, res.List)
	}

	if res.Hook != nil {
		action := deriveAction(key+SuffixHook, res, res.Hook)
		if action.Operation.PerformList == nil && res.List != nil {
			action.Operation.PerformList = ir.ClonePerform(res.List.Operation.Perform)
		}
		schema.Triggers[key+SuffixHook] = action
	}

	if res.Search != nil {
		action := deriveAction(key+SuffixSearch, res, res.Search)
		fillPerformGet(&action.Operation, res)
		schema.Searches[key+SuffixSearch] = action
	}

	if res.Create != nil {
		action := deriveAction(key+SuffixCreate, res, res.Create)
		fillPerformGet(&action.Operation, res)
		schema.Creates[key+SuffixCreate] = action
	}
	return nil
}

// deriveAction builds the action for one resource method. Blank stubs yield
// present actions with an empty operation.
func deriveAction(key string, res ir.Resource, m *ir.Method) ir.Action {
	op := m.Operation.Clone()
	fillOutputs(&op, res)
	return ir.Action{
		Key:       key,
		Noun:      res.Noun,
		Display:   m.Display,
		Operation: op,
	}
}

func fillOutputs(op *ir.Operation, res ir.Resource) {
	if op.OutputFields == nil && res.OutputFields != nil {
		op.OutputFields = res.OutputFields.Clone()
	}
	if op.Sample == nil && res.Sample != nil {
		op.Sample = ir.CloneMap(res.Sample)
	}
}

func fillPerformGet(op *ir.Operation, res ir.Resource) {
	if op.PerformGet == nil && res.Get != nil && res.Get.Operation.Perform != nil {
		op.PerformGet = ir.ClonePerform(res.Get.Operation.Perform)
	}
}

// linker fills the kind-specific gaps of a linked action.
type linker func(op *ir.Operation, res ir.Resource)

func linkTrigger(op *ir.Operation, res ir.Resource) {
	if op.PerformList == nil && res.List != nil && res.List.Operation.Perform != nil {
		op.PerformList = ir.ClonePerform(res.List.Operation.Perform)
	}
	fillOutputs(op, res)
}

func linkGetter(op *ir.Operation, res ir.Resource) {
	fillPerformGet(op, res)
	fillOutputs(op, res)
}

func compileLinked(dst map[string]ir.Action, namespace string, authored map[string]ir.Action, resources map[string]ir.Resource, link linker) error {
	for _, key := range slices.Sorted(maps.Keys(authored)) {
		action := authored[key].Clone()
		if action.Key == "" {
			action.Key = key
		}

		if ref := action.Operation.Resource; ref != "" {
			res, ok := resources[ref]
			if !ok {
				return &CompileError{
					Field:   fmt.Sprintf("%s.%s.operation.resource", namespace, key),
					Message: fmt.Sprintf("unknown resource %q", ref),
				}
			}
			if action.Noun == "" {
				action.Noun = res.Noun
			}
			link(&action.Operation, res)
		}

		dst[key] = action
	}
	return nil
}

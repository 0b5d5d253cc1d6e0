package graph

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/atlekbai/hsm"
)

// Document is the YAML form of a machine export.
type Document struct {
	StateType    string          `yaml:"stateType"`
	TriggerType  string          `yaml:"triggerType"`
	InitialState string          `yaml:"initialState"`
	States       []DocumentState `yaml:"states"`
}

// DocumentState describes one state.
type DocumentState struct {
	Name        string               `yaml:"name"`
	Superstate  string               `yaml:"superstate,omitempty"`
	Substates   []string             `yaml:"substates,omitempty"`
	Initial     string               `yaml:"initial,omitempty"`
	Entry       []DocumentAction     `yaml:"entry,omitempty"`
	Exit        []DocumentAction     `yaml:"exit,omitempty"`
	Activate    []string             `yaml:"activate,omitempty"`
	Deactivate  []string             `yaml:"deactivate,omitempty"`
	Transitions []DocumentTransition `yaml:"transitions,omitempty"`
	Ignored     []DocumentIgnored    `yaml:"ignored,omitempty"`
}

// DocumentAction describes an entry or exit action.
type DocumentAction struct {
	Description string `yaml:"description"`
	Async       bool   `yaml:"async,omitempty"`
	FromTrigger string `yaml:"fromTrigger,omitempty"`
}

// DocumentTransition describes a fixed, reentry, internal or dynamic transition.
type DocumentTransition struct {
	Trigger     string                `yaml:"trigger"`
	Kind        string                `yaml:"kind"`
	Destination string                `yaml:"destination,omitempty"`
	Action      string                `yaml:"action,omitempty"`
	Selector    string                `yaml:"selector,omitempty"`
	Possible    []DocumentDestination `yaml:"possible,omitempty"`
	Guards      []string              `yaml:"guards,omitempty"`
}

// DocumentDestination is an advertised destination of a dynamic transition.
type DocumentDestination struct {
	State     string `yaml:"state"`
	Criterion string `yaml:"criterion,omitempty"`
}

// DocumentIgnored describes an ignored trigger.
type DocumentIgnored struct {
	Trigger string   `yaml:"trigger"`
	Guards  []string `yaml:"guards,omitempty"`
}

// NewDocument converts a machine export into its YAML document. States are
// sorted by name; transitions keep their configuration order.
func NewDocument(machineInfo *hsm.StateMachineInfo) Document {
	doc := Document{
		StateType:    machineInfo.StateType,
		TriggerType:  machineInfo.TriggerType,
		InitialState: machineInfo.InitialState.String(),
	}

	for _, info := range hsm.ListSlice(machineInfo.States) {
		doc.States = append(doc.States, newDocumentState(info))
	}
	sort.SliceStable(doc.States, func(i, j int) bool {
		return doc.States[i].Name < doc.States[j].Name
	})
	return doc
}

func newDocumentState(info *hsm.StateInfo) DocumentState {
	state := DocumentState{Name: info.String()}
	if info.Superstate != nil {
		state.Superstate = info.Superstate.String()
	}
	for _, sub := range hsm.ListSlice(info.Substates) {
		state.Substates = append(state.Substates, sub.String())
	}
	if info.InitialTransitionTarget != nil {
		state.Initial = info.InitialTransitionTarget.String()
	}
	for _, act := range hsm.ListSlice(info.EntryActions) {
		state.Entry = append(state.Entry, newDocumentAction(act))
	}
	for _, act := range hsm.ListSlice(info.ExitActions) {
		state.Exit = append(state.Exit, newDocumentAction(act))
	}
	for _, act := range hsm.ListSlice(info.ActivateActions) {
		state.Activate = append(state.Activate, act.Description())
	}
	for _, act := range hsm.ListSlice(info.DeactivateActions) {
		state.Deactivate = append(state.Deactivate, act.Description())
	}

	for _, fix := range hsm.ListSlice(info.FixedTransitions) {
		t := DocumentTransition{
			Trigger:     fix.GetTrigger().String(),
			Kind:        "external",
			Destination: fix.DestinationState.String(),
			Guards:      guardDescriptions(fix.GetGuardConditions()),
		}
		switch {
		case fix.GetIsInternalTransition():
			t.Kind = "internal"
			t.Destination = ""
			if fix.Action != nil {
				t.Action = fix.Action.Description()
			}
		case fix.IsReentry:
			t.Kind = "reentry"
		}
		state.Transitions = append(state.Transitions, t)
	}
	for _, dyn := range hsm.ListSlice(info.DynamicTransitions) {
		t := DocumentTransition{
			Trigger:  dyn.GetTrigger().String(),
			Kind:     "dynamic",
			Selector: dyn.DestinationStateSelectorDescription.Description(),
			Guards:   guardDescriptions(dyn.GetGuardConditions()),
		}
		for _, possible := range dyn.PossibleDestinationStates {
			t.Possible = append(t.Possible, DocumentDestination{
				State:     possible.DestinationState,
				Criterion: possible.Criterion,
			})
		}
		state.Transitions = append(state.Transitions, t)
	}
	for _, ignored := range hsm.ListSlice(info.IgnoredTriggers) {
		state.Ignored = append(state.Ignored, DocumentIgnored{
			Trigger: ignored.GetTrigger().String(),
			Guards:  guardDescriptions(ignored.GetGuardConditions()),
		})
	}
	return state
}

func newDocumentAction(act hsm.ActionInfo) DocumentAction {
	action := DocumentAction{
		Description: act.Description(),
		Async:       act.IsAsync(),
	}
	if act.FromTrigger != nil {
		action.FromTrigger = fmt.Sprint(act.FromTrigger)
	}
	return action
}

func guardDescriptions(guards []hsm.InvocationInfo) []string {
	var descriptions []string
	for _, g := range guards {
		descriptions = append(descriptions, g.Description())
	}
	return descriptions
}

// YAML renders a machine export as a YAML document.
func YAML(machineInfo *hsm.StateMachineInfo) ([]byte, error) {
	data, err := yaml.Marshal(NewDocument(machineInfo))
	if err != nil {
		return nil, fmt.Errorf("yaml marshal: %w", err)
	}
	return data, nil
}

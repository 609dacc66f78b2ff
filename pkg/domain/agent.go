package domain

import "encoding/json"

// Agent is a human agent capable of handling tickets in one or more
// categories, with a maximum concurrent ticket capacity. Agents are
// process-wide state created at startup and mutated only by the
// assignment solver.
type Agent struct {
	ID       string               `json:"id"`
	Name     string               `json:"name"`
	Skills   map[Category]float64 `json:"skills"`
	Capacity int                  `json:"capacity"`
	Assigned []string             `json:"assigned"`
}

// MarshalJSON adds the derived current_load field (len(Assigned)) to the
// wire representation without storing it redundantly on the struct.
func (a *Agent) MarshalJSON() ([]byte, error) {
	type alias Agent
	return json.Marshal(struct {
		*alias
		CurrentLoad int `json:"current_load"`
	}{alias: (*alias)(a), CurrentLoad: len(a.Assigned)})
}

// RemainingCapacity is the number of open slots an agent currently has.
func (a *Agent) RemainingCapacity() int {
	n := a.Capacity - len(a.Assigned)
	if n < 0 {
		return 0
	}
	return n
}

// SkillFor returns the agent's skill score for category, defaulting to
// 0.1 when the category is absent from the agent's skill map: an unknown
// category is never free, it still costs something in the assignment
// solver.
func (a *Agent) SkillFor(category Category) float64 {
	if s, ok := a.Skills[category]; ok {
		return s
	}
	return 0.1
}

// DefaultAgentRegistry returns the starting set of agents, carried over
// from the original triage prototype's hard-coded roster: one specialist
// per category plus a generalist.
func DefaultAgentRegistry() []*Agent {
	return []*Agent{
		{ID: "A1", Name: "Agent X (Tech Lead)", Capacity: 2, Skills: map[Category]float64{
			Technical: 0.9, Billing: 0.1, Legal: 0.0,
		}},
		{ID: "A2", Name: "Agent Y (Billing Pro)", Capacity: 3, Skills: map[Category]float64{
			Technical: 0.1, Billing: 0.9, Legal: 0.0,
		}},
		{ID: "A3", Name: "Agent Z (Legal Eval)", Capacity: 2, Skills: map[Category]float64{
			Technical: 0.0, Billing: 0.2, Legal: 0.8,
		}},
		{ID: "A4", Name: "Agent W (Generalist)", Capacity: 4, Skills: map[Category]float64{
			Technical: 0.4, Billing: 0.4, Legal: 0.4,
		}},
	}
}

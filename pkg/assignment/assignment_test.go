package assignment

import (
	"testing"

	"github.com/jordigilh/triagex/pkg/domain"
)

func TestRouteAssignsBestSkillMatch(t *testing.T) {
	agents := []*domain.Agent{
		{ID: "tech", Name: "Tech Lead", Capacity: 1, Skills: map[domain.Category]float64{domain.Technical: 0.9, domain.Billing: 0.1}},
		{ID: "bill", Name: "Billing Pro", Capacity: 1, Skills: map[domain.Category]float64{domain.Technical: 0.1, domain.Billing: 0.9}},
	}
	tickets := []domain.Ticket{
		{ID: "t1", Category: domain.Technical, Text: "server is down"},
		{ID: "t2", Category: domain.Billing, Text: "wrong invoice amount"},
	}

	records := Route(tickets, agents)
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	byTicket := make(map[string]Record, len(records))
	for _, r := range records {
		byTicket[r.TicketID] = r
	}

	if byTicket["t1"].AgentName != "Tech Lead" {
		t.Errorf("t1 assigned to %q, want %q", byTicket["t1"].AgentName, "Tech Lead")
	}
	if byTicket["t2"].AgentName != "Billing Pro" {
		t.Errorf("t2 assigned to %q, want %q", byTicket["t2"].AgentName, "Billing Pro")
	}
}

func TestRouteRespectsCapacity(t *testing.T) {
	agents := []*domain.Agent{
		{ID: "a1", Name: "Solo", Capacity: 1, Skills: map[domain.Category]float64{domain.Technical: 0.9}},
	}
	tickets := []domain.Ticket{
		{ID: "t1", Category: domain.Technical},
		{ID: "t2", Category: domain.Technical},
	}

	records := Route(tickets, agents)
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1 (only one slot of capacity available)", len(records))
	}
}

func TestRouteMutatesAgentAssigned(t *testing.T) {
	agent := &domain.Agent{ID: "a1", Name: "Solo", Capacity: 2, Skills: map[domain.Category]float64{domain.Technical: 0.9}}
	tickets := []domain.Ticket{{ID: "t1", Category: domain.Technical}}

	Route(tickets, []*domain.Agent{agent})

	if len(agent.Assigned) != 1 || agent.Assigned[0] != "t1" {
		t.Errorf("agent.Assigned = %v, want [t1]", agent.Assigned)
	}
}

func TestRouteEmptyInputs(t *testing.T) {
	if got := Route(nil, []*domain.Agent{{Capacity: 1}}); got != nil {
		t.Errorf("Route(nil tickets) = %v, want nil", got)
	}
	if got := Route([]domain.Ticket{{ID: "t1"}}, nil); got != nil {
		t.Errorf("Route(nil agents) = %v, want nil", got)
	}
}

func TestRouteUnknownCategoryUsesDefaultSkill(t *testing.T) {
	agent := &domain.Agent{ID: "a1", Name: "Generalist", Capacity: 1, Skills: map[domain.Category]float64{}}
	tickets := []domain.Ticket{{ID: "t1", Category: domain.Legal}}

	records := Route(tickets, []*domain.Agent{agent})
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].SkillMatch != 0.1 {
		t.Errorf("SkillMatch = %v, want default 0.1", records[0].SkillMatch)
	}
}

func TestPreviewTruncation(t *testing.T) {
	long := ""
	for i := 0; i < 200; i++ {
		long += "x"
	}
	got := preview(long)
	if len(got) != PreviewLen+len("...") {
		t.Errorf("len(preview) = %d, want %d", len(got), PreviewLen+len("..."))
	}

	short := "short text"
	if got := preview(short); got != short {
		t.Errorf("preview(short) = %q, want unchanged %q", got, short)
	}
}

// Package assignment solves skill-based ticket-to-agent routing as a
// rectangular linear-sum assignment problem.
package assignment

import (
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/jordigilh/triagex/pkg/domain"
)

// PreviewLen bounds how much of a ticket's text is echoed back in a
// Record, so a routing response stays small even for long ticket bodies.
const PreviewLen = 50

// Record is one ticket-to-agent routing decision.
type Record struct {
	TicketID  string          `json:"ticket_id"`
	Category  domain.Category `json:"category"`
	AgentName string          `json:"agent_name"`
	SkillMatch float64        `json:"skill_match"`
	Preview    string         `json:"preview"`
}

// slot is one unit of an agent's capacity, expanded so the assignment
// problem is a plain one-ticket-per-slot bipartite matching.
type slot struct {
	agent *domain.Agent
}

// Route assigns as many tickets as possible to agents, respecting each
// agent's remaining capacity, and returns one Record per ticket that
// received an agent. Tickets in excess of total remaining capacity are
// left unassigned and excluded from the result (the caller keeps them
// queued for the next routing pass).
func Route(tickets []domain.Ticket, agents []*domain.Agent) []Record {
	if len(tickets) == 0 || len(agents) == 0 {
		return nil
	}

	slots := expandSlots(agents)
	if len(slots) == 0 {
		return nil
	}

	n := len(tickets)
	m := len(slots)
	size := n
	if m > size {
		size = m
	}

	cost := mat.NewDense(size, size, nil)
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			if i >= n || j >= m {
				// Padding row/column for the square relaxation: zero
				// cost so it never distorts a real assignment's total.
				cost.Set(i, j, 0)
				continue
			}
			skill := slots[j].agent.SkillFor(tickets[i].Category)
			cost.Set(i, j, 1-skill)
		}
	}

	assignment := hungarian(cost)

	records := make([]Record, 0, n)
	for ticketIdx, slotIdx := range assignment {
		if ticketIdx >= n || slotIdx >= m {
			continue
		}
		ticket := tickets[ticketIdx]
		agent := slots[slotIdx].agent
		skill := agent.SkillFor(ticket.Category)

		agent.Assigned = append(agent.Assigned, ticket.ID)

		records = append(records, Record{
			TicketID:   ticket.ID,
			Category:   ticket.Category,
			AgentName:  agent.Name,
			SkillMatch: skill,
			Preview:    preview(ticket.Text),
		})
	}
	return records
}

func expandSlots(agents []*domain.Agent) []slot {
	var slots []slot
	for _, a := range agents {
		for i := 0; i < a.RemainingCapacity(); i++ {
			slots = append(slots, slot{agent: a})
		}
	}
	return slots
}

func preview(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= PreviewLen {
		return string(runes)
	}
	return string(runes[:PreviewLen]) + "..."
}

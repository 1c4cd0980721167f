package store

import (
	"context"
	"fmt"
)

// AgentMessageCounts returns the total message count per agent, for the
// TUI's header activity summary. Agents with zero indexed messages are
// simply absent rather than reported as zero.
func (s *Store) AgentMessageCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.read.QueryContext(ctx, `
		SELECT c.agent, COUNT(*)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		GROUP BY c.agent`)
	if err != nil {
		return nil, fmt.Errorf("store: agent message counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var agent string
		var count int
		if err := rows.Scan(&agent, &count); err != nil {
			return nil, fmt.Errorf("store: scan agent count row: %w", err)
		}
		counts[agent] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: agent count rows: %w", err)
	}
	return counts, nil
}

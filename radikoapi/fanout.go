package radikoapi

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// programsAllLimit bounds concurrent guide fetches so a long station
// list doesn't open one connection per station at once.
const programsAllLimit = 4

// ProgramsAll fetches the guide for several stations concurrently, one
// independent call per station, and returns results keyed by station
// id. The first failing station cancels the remaining fetches.
func (c *Client) ProgramsAll(ctx context.Context, stationIDs []string, date string) (map[string][]Program, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(programsAllLimit)

	var mu sync.Mutex
	out := make(map[string][]Program, len(stationIDs))
	for _, id := range stationIDs {
		g.Go(func() error {
			progs, err := c.Programs(ctx, id, date)
			if err != nil {
				return fmt.Errorf("station %s: %w", id, err)
			}
			mu.Lock()
			out[id] = progs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

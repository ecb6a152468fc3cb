package revwalk

import (
	"context"

	"github.com/Sumatoshi-tech/codealong/pkg/gitlib"
)

// Job is one commit to analyze and its position in walk order.
type Job struct {
	Index int
	Hash  gitlib.Hash
}

// Stream feeds hashes into a channel buffered by lookahead. The channel is
// closed when every hash was sent or ctx is done.
func Stream(ctx context.Context, hashes []gitlib.Hash, lookahead int) <-chan Job {
	out := make(chan Job, max(lookahead, 0))

	go func() {
		defer close(out)

		for i, h := range hashes {
			select {
			case out <- Job{Index: i, Hash: h}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

package power

import "context"

// ChannelSource adapts a plain channel into a Source. It is used in tests
// and wherever conditions come from another component.
type ChannelSource struct {
	in <-chan Condition
}

// NewChannelSource wraps in. Closing in ends the watch.
func NewChannelSource(in <-chan Condition) *ChannelSource {
	return &ChannelSource{in: in}
}

func (s *ChannelSource) Watch(ctx context.Context) (<-chan Condition, error) {
	out := make(chan Condition)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-s.in:
				if !ok {
					return
				}
				if !send(ctx, out, c) {
					return
				}
			}
		}
	}()

	return out, nil
}

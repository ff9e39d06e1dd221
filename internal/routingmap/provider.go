package routingmap

import (
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	pkerrors "github.com/arkilian/pkrouting/internal/errors"
	"github.com/arkilian/pkrouting/internal/router"
)

// Provider holds the current routing map of each container and announces
// changes on a notifier. It is safe for concurrent use.
type Provider struct {
	mu       sync.RWMutex
	maps     map[string]*Map
	notifier *router.Notifier
	logger   *zap.Logger
}

// NewProvider creates a provider publishing to notifier, which may be nil.
func NewProvider(notifier *router.Notifier, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		maps:     make(map[string]*Map),
		notifier: notifier,
		logger:   logger,
	}
}

// Current returns the routing map of container.
func (p *Provider) Current(container string) (*Map, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	m, ok := p.maps[container]
	if !ok {
		return nil, pkerrors.NewStorageError(pkerrors.CodeSnapshotNotFound,
			fmt.Sprintf("no routing map installed for %s", container), nil)
	}
	return m, nil
}

// Install replaces the routing map of container.
func (p *Provider) Install(container string, m *Map) {
	p.mu.Lock()
	p.maps[container] = m
	p.mu.Unlock()

	p.logger.Debug("installed routing map",
		zap.String("container", container),
		zap.Int("ranges", m.Len()))
	p.publish(router.MapInstalled, container,
		lo.Map(m.ranges, func(r PartitionKeyRange, _ int) string { return r.ID }))
}

// ApplySplit folds split children into the map of container. It reports
// false, leaving the map untouched, while the children do not yet cover
// their parents.
func (p *Provider) ApplySplit(container string, children []PartitionKeyRange) (bool, error) {
	p.mu.Lock()
	current, ok := p.maps[container]
	if !ok {
		p.mu.Unlock()
		return false, pkerrors.NewStorageError(pkerrors.CodeSnapshotNotFound,
			fmt.Sprintf("no routing map installed for %s", container), nil)
	}
	next, ok := current.TryCombine(children)
	if ok {
		p.maps[container] = next
	}
	p.mu.Unlock()

	if !ok {
		return false, nil
	}
	var parents []string
	for _, c := range children {
		parents = append(parents, c.Parents...)
	}
	parents = lo.Uniq(parents)
	p.publish(router.RangesSplit, container, parents)
	return true, nil
}

func (p *Provider) publish(t router.NotificationType, container string, ids []string) {
	if p.notifier == nil {
		return
	}
	p.notifier.Publish(router.Notification{
		Type:      t,
		Container: container,
		RangeIDs:  ids,
		Timestamp: time.Now().UnixNano(),
	})
}

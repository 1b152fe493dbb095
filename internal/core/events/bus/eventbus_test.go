package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicPublishSubscribe(t *testing.T) {
	b := New()
	var got []any
	_, err := b.Subscribe("turn.started", func(e Event) error {
		got = append(got, e.Data())
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(NewEvent("turn.started", "session", "e1", nil)))
	require.NoError(t, b.Publish(NewEvent("damage.applied", "session", 150, nil)))
	assert.Equal(t, []any{"e1"}, got)
}

func TestDeliveryFollowsSubscriptionOrder(t *testing.T) {
	b := New()
	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		_, err := b.Subscribe("ev", func(Event) error {
			order = append(order, name)
			return nil
		})
		require.NoError(t, err)
	}
	require.NoError(t, b.Publish(NewEvent("ev", "src", nil, nil)))
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestWildcardReceivesEveryType(t *testing.T) {
	b := New()
	var types []string
	_, err := b.SubscribeTopic("battle-1", Wildcard, func(e Event) error {
		types = append(types, e.Type())
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.PublishBatch("battle-1",
		NewEvent("turn.started", "s", nil, nil),
		NewEvent("unit.died", "s", nil, nil),
	))
	require.NoError(t, b.PublishToTopic("battle-2", NewEvent("turn.started", "s", nil, nil)))
	assert.Equal(t, []string{"turn.started", "unit.died"}, types)
}

func TestHandlerErrorsAreJoined(t *testing.T) {
	b := New()
	errA := errors.New("a")
	errB := errors.New("b")
	_, _ = b.Subscribe("x", func(Event) error { return errA })
	_, _ = b.Subscribe("x", func(Event) error { return errB })

	err := b.Publish(NewEvent("x", "src", nil, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.EqualValues(t, 1, b.GetMetrics().Errors)
}

func TestCancelStopsDelivery(t *testing.T) {
	b := New()
	count := 0
	sub, err := b.Subscribe("x", func(Event) error { count++; return nil })
	require.NoError(t, err)

	_ = b.Publish(NewEvent("x", "src", nil, nil))
	require.NoError(t, b.Unsubscribe(sub))
	require.NoError(t, sub.Cancel())
	_ = b.Publish(NewEvent("x", "src", nil, nil))

	assert.Equal(t, 1, count)
	assert.False(t, sub.IsActive())
	assert.NoError(t, b.Unsubscribe(nil))
}

func TestTopicsIsolationAndDelete(t *testing.T) {
	b := New()
	require.NoError(t, b.CreateTopic("t1"))
	require.NoError(t, b.CreateTopic("t2"))
	count1, count2 := 0, 0
	sub1, _ := b.SubscribeTopic("t1", "ev", func(Event) error { count1++; return nil })
	_, _ = b.SubscribeTopic("t2", "ev", func(Event) error { count2++; return nil })

	_ = b.PublishToTopic("t1", NewEvent("ev", "src", nil, nil))
	assert.Equal(t, 1, count1)
	assert.Equal(t, 0, count2)

	require.NoError(t, b.DeleteTopic("t1"))
	assert.False(t, sub1.IsActive())
	assert.ErrorIs(t, b.DeleteTopic("t1"), ErrTopicNotFound)

	names := make([]string, 0)
	for _, ti := range b.GetTopics() {
		names = append(names, ti.Name)
	}
	assert.Equal(t, []string{"t2"}, names)
}

func TestFiltersDropSilently(t *testing.T) {
	b := New()
	count := 0
	_, _ = b.Subscribe("e", func(Event) error { count++; return nil })

	reject := func(Event) bool { return false }
	require.NoError(t, b.PublishWithFilters(NewEvent("e", "s", nil, nil), reject))
	assert.Equal(t, 0, count)
	assert.EqualValues(t, 1, b.GetMetrics().DroppedByFilters)
}

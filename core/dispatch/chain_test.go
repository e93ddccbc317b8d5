package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skyfleet/skyfleet/core/model"
)

func segments(lengths ...int) []model.DeliverySegment {
	var segs []model.DeliverySegment
	start := testBase
	for i, n := range lengths {
		path := route(start, n)
		segs = append(segs, model.DeliverySegment{DeliveryID: int64(1000 + i), FlightPath: path})
		start = path[len(path)-1]
	}
	return segs
}

func TestChainSegmentsLength(t *testing.T) {
	segs := segments(4, 5, 3)
	path := ChainSegments(segs)
	if len(path) != 4+4+2 {
		t.Fatalf("chained length %d want 10", len(path))
	}
	// no duplicate frame at rendezvous points
	for i := 1; i < len(path); i++ {
		if path[i] == path[i-1] {
			t.Fatalf("duplicate waypoint at %d", i)
		}
	}
	assert.Equal(t, segs[2].FlightPath[2], path[len(path)-1])
}

func TestChainSegmentsEmpty(t *testing.T) {
	assert.Empty(t, ChainSegments(nil))
	segs := []model.DeliverySegment{{DeliveryID: 1}, {DeliveryID: 2, FlightPath: route(testBase, 3)}}
	assert.Len(t, ChainSegments(segs), 2)
}

func TestCurrentDelivery(t *testing.T) {
	lengths := []int{4, 5, 3}
	want := []int{0, 0, 0, 0, 1, 1, 1, 1, 2, 2}
	for idx, w := range want {
		assert.Equal(t, w, currentDelivery(lengths, idx), "index %d", idx)
	}
	assert.Equal(t, 2, currentDelivery(lengths, 42))
	assert.Equal(t, 0, currentDelivery(nil, 3))
}

func TestDeliveryPointHover(t *testing.T) {
	path := route(testBase, 6)
	hover := path[3]
	path = append(path[:4], append([]model.Waypoint{hover}, path[4:]...)...)
	dp, ok := deliveryPoint(path, 1e-9, 0.4)
	assert.True(t, ok)
	assert.Equal(t, hover, dp)
}

func TestDeliveryPointFallback(t *testing.T) {
	path := route(testBase, 10)
	dp, ok := deliveryPoint(path, 1e-9, 0.4)
	assert.True(t, ok)
	assert.Equal(t, path[4], dp)

	_, ok = deliveryPoint(nil, 1e-9, 0.4)
	assert.False(t, ok)
}

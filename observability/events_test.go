package observability

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"sweeper/core/events"
	"sweeper/core/types"
	"sweeper/native/forwarder"
)

type ledgerEvent struct{ evt *types.Event }

func (e ledgerEvent) EventType() string   { return e.evt.Type }
func (e ledgerEvent) Event() *types.Event { return e.evt }

// sweptUnits reads sweeper_forwarder_swept_units_total{asset} from the
// default registry.
func sweptUnits(t *testing.T, asset string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	var family *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "sweeper_forwarder_swept_units_total" {
			family = f
		}
	}
	if family == nil {
		return 0
	}
	for _, m := range family.GetMetric() {
		for _, label := range m.GetLabel() {
			if label.GetName() == "asset" && label.GetValue() == asset {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestEventsFeedSweptUnits(t *testing.T) {
	registry := Events()
	fwd := common.HexToAddress("0x00000000000000000000000000000000000000c1")
	dest := common.HexToAddress("0x00000000000000000000000000000000000000d1")
	tok := common.HexToAddress("0x00000000000000000000000000000000000000e1")

	nativeBefore := sweptUnits(t, "native")
	tokenBefore := sweptUnits(t, "token")
	flushedBefore := testutil.ToFloat64(registry.emitted.WithLabelValues(forwarder.EventTypeFlushedNative))

	registry.Emit(ledgerEvent{forwarder.NewFlushedNativeEvent(fwd, dest, big.NewInt(750))})
	registry.Emit(ledgerEvent{forwarder.NewFlushedTokenEvent(fwd, tok, dest, big.NewInt(400))})
	registry.Emit(ledgerEvent{&types.Event{Type: forwarder.EventTypeFlushedNative, Attributes: map[string]string{"amount": "garbage"}}})

	require.Equal(t, nativeBefore+750, sweptUnits(t, "native"))
	require.Equal(t, tokenBefore+400, sweptUnits(t, "token"))
	require.Equal(t, flushedBefore+2, testutil.ToFloat64(registry.emitted.WithLabelValues(forwarder.EventTypeFlushedNative)))
}

func TestEventsCountTransfersByAsset(t *testing.T) {
	registry := Events()
	before := testutil.ToFloat64(registry.transfers.WithLabelValues(events.AssetNative))
	registry.Emit(ledgerEvent{&types.Event{Type: events.TypeTransfer, Attributes: map[string]string{"asset": events.AssetNative, "amount": "5"}}})
	require.Equal(t, before+1, testutil.ToFloat64(registry.transfers.WithLabelValues(events.AssetNative)))
}

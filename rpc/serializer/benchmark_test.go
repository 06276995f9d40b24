package serializer

import (
	"testing"

	"github.com/ValentinKolb/privlock/rpc/common"
)

// benchmarkMessages returns the messages exchanged on the hot path
func benchmarkMessages() map[string]common.Message {
	return map[string]common.Message{
		"Empty": {
			MsgType: common.MsgTSuccess,
		},
		"AcquireRequest": {
			MsgType: common.MsgTPRVAcquire,
			ConnID:  42,
		},
		"AcquireRejected": {
			MsgType: common.MsgTPRVAcquire,
			Reason:  common.ReasonAlreadyHeld,
			Err:     "privacy lock already held: held by connection 7",
		},
		"OverlayStatus": {
			MsgType: common.MsgTOVLStatus,
			Enabled: true,
			Active:  true,
			Async:   true,
		},
		"InfoWithStats": {
			MsgType: common.MsgTPRVInfo,
			Key:     "backlight",
			ConnID:  3,
			Stats: map[string]float64{
				"backlight.enable.count":   12,
				"backlight.enable.mean_ms": 1.5,
				"backlight.enable.p99_ms":  4.25,
				"backlight.disable.count":  11,
			},
		},
	}
}

// BenchmarkSerialize benchmarks serialization for all implementations with various message types
func BenchmarkSerialize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					if _, err := serializer.Serialize(msg); err != nil {
						b.Fatalf("Failed to serialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserialize benchmarks deserialization for all implementations with various message types
func BenchmarkDeserialize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				data, err := serializer.Serialize(msg)
				if err != nil {
					b.Fatalf("Failed to serialize %s with %s: %v", msgName, name, err)
				}
				b.ReportMetric(float64(len(data)), "bytes")
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					var result common.Message
					if err := serializer.Deserialize(data, &result); err != nil {
						b.Fatalf("Failed to deserialize: %v", err)
					}
				}
			})
		}
	}
}

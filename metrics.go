package main

import (
	"fmt"
	"strconv"
)

// Unknown replaces any metric that could not be read.
const Unknown = "unknown"

// Card placeholder names, also the keys of the persisted snapshot record.
const (
	FieldCPUUsage       = "cpu_usage"
	FieldMemoryUsage    = "memory_usage"
	FieldCurrentTime    = "current_time"
	FieldNetworkLatency = "network_latency"
	FieldPacketLoss     = "packet_loss"
)

var cardFieldNames = []string{
	FieldCPUUsage,
	FieldMemoryUsage,
	FieldCurrentTime,
	FieldNetworkLatency,
	FieldPacketLoss,
}

// Snapshot holds the host metrics sampled for one card update.
type Snapshot struct {
	CPUUsage       float64 `yaml:"cpu_usage"`
	MemoryUsage    float64 `yaml:"memory_usage"`
	CurrentTime    string  `yaml:"current_time"`
	NetworkLatency string  `yaml:"network_latency"`
	PacketLoss     string  `yaml:"packet_loss"`
}

// CardFields maps placeholder names to raw values. Values are float64 for
// the usage percentages and string otherwise; absent keys render as Unknown.
type CardFields map[string]any

// Fields returns the snapshot as card fields.
func (s Snapshot) Fields() CardFields {
	return CardFields{
		FieldCPUUsage:       s.CPUUsage,
		FieldMemoryUsage:    s.MemoryUsage,
		FieldCurrentTime:    s.CurrentTime,
		FieldNetworkLatency: s.NetworkLatency,
		FieldPacketLoss:     s.PacketLoss,
	}
}

// unknownFields is used when neither a stored nor a fresh snapshot exists.
func unknownFields() CardFields {
	fields := make(CardFields, len(cardFieldNames))
	for _, name := range cardFieldNames {
		fields[name] = Unknown
	}
	return fields
}

// formatValue renders a field value the way it appears on the card.
// Floats use the shortest exact form so 77.0 prints as "77".
func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return Unknown
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

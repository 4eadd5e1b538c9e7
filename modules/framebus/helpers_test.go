package framebus

import "testing"

func TestCalculateDropRate(t *testing.T) {
	tests := []struct {
		name     string
		stats    BusStats
		expected float64
	}{
		{"no frames", BusStats{}, 0.0},
		{"no drops", BusStats{TotalSent: 300}, 0.0},
		{"all dropped", BusStats{TotalDropped: 30}, 1.0},
		{"half dropped", BusStats{TotalSent: 15, TotalDropped: 15}, 0.5},
		{"saver keeping 1 in 4", BusStats{TotalSent: 25, TotalDropped: 75}, 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateDropRate(tt.stats)
			if got != tt.expected {
				t.Errorf("CalculateDropRate() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCalculateSubscriberDropRate(t *testing.T) {
	stats := BusStats{
		Subscribers: map[string]SubscriberStats{
			"stats-reporter": {Policy: DropOld, Sent: 120, Dropped: 0},
			"saver":          {Policy: DropNew, Sent: 30, Dropped: 90},
			"idle":           {Policy: DropNew},
		},
	}

	tests := []struct {
		name         string
		subscriberID string
		expected     float64
	}{
		{"reporter keeps up", "stats-reporter", 0.0},
		{"saver behind", "saver", 0.75},
		{"no frames yet", "idle", 0.0},
		{"unknown subscriber", "unknown", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateSubscriberDropRate(stats, tt.subscriberID)
			if got != tt.expected {
				t.Errorf("CalculateSubscriberDropRate() = %v, want %v", got, tt.expected)
			}
		})
	}
}

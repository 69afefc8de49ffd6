package rtc

import (
	"testing"

	"github.com/dkeye/Relay/internal/config"
	"github.com/pion/webrtc/v4"
)

func TestICEConfiguration_DefaultWhenEmpty(t *testing.T) {
	cfg, err := ICEConfiguration(nil)
	if err != nil {
		t.Fatalf("ICEConfiguration: %v", err)
	}
	if len(cfg.ICEServers) != 1 || cfg.ICEServers[0].URLs[0] != "stun:stun.l.google.com:19302" {
		t.Fatalf("ICEServers=%+v", cfg.ICEServers)
	}
}

func TestICEConfiguration_TurnWithCredentials(t *testing.T) {
	cfg, err := ICEConfiguration([]config.ICEServer{
		{URLs: []string{"stun:stun.example.com:3478"}},
		{URLs: []string{"turn:turn.example.com:3478?transport=udp", "turns:turn.example.com:5349"}, Username: "u", Credential: "p"},
	})
	if err != nil {
		t.Fatalf("ICEConfiguration: %v", err)
	}
	if len(cfg.ICEServers) != 2 {
		t.Fatalf("ICEServers=%+v", cfg.ICEServers)
	}
	turn := cfg.ICEServers[1]
	if turn.Username != "u" || turn.CredentialType != webrtc.ICECredentialTypePassword {
		t.Fatalf("turn=%+v", turn)
	}
}

func TestICEConfiguration_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		servers []config.ICEServer
	}{
		{"no urls", []config.ICEServer{{}}},
		{"bad scheme", []config.ICEServer{{URLs: []string{"http://example.com"}}}},
		{"turn without credentials", []config.ICEServer{{URLs: []string{"turn:turn.example.com:3478"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ICEConfiguration(tt.servers); err == nil {
				t.Fatalf("ICEConfiguration(%+v) succeeded", tt.servers)
			}
		})
	}
}

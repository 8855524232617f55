package realtime

import "testing"

func TestParseFrame_JSON(t *testing.T) {
	raw := []byte(`{"type":"agent_location_update","parcelId":"p-1","latitude":43.24,"longitude":76.91,"speedKph":38.5}`)

	f, err := ParseFrame(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Type != FrameAgentLocationUpdate {
		t.Fatalf("unexpected type: %s", f.Type)
	}
	if f.ParcelID != "p-1" {
		t.Fatalf("unexpected parcelId: %s", f.ParcelID)
	}
	if f.Latitude == nil || *f.Latitude != 43.24 {
		t.Fatalf("latitude not parsed: %v", f.Latitude)
	}
	if f.SpeedKph == nil || *f.SpeedKph != 38.5 {
		t.Fatalf("speedKph not parsed: %v", f.SpeedKph)
	}
	if f.Heading != nil {
		t.Fatalf("heading should be absent, got %v", *f.Heading)
	}
}

func TestParseFrame_LooseFallback(t *testing.T) {
	raw := []byte("type=agent_location_update, parcelId=p-9, latitude=51.1, longitude=71.4")

	f, err := ParseFrame(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Type != FrameAgentLocationUpdate || f.ParcelID != "p-9" {
		t.Fatalf("loose frame not parsed: %+v", f)
	}
	if f.Latitude == nil || *f.Latitude != 51.1 {
		t.Fatalf("latitude not parsed: %v", f.Latitude)
	}
	if f.Longitude == nil || *f.Longitude != 71.4 {
		t.Fatalf("longitude not parsed: %v", f.Longitude)
	}
}

func TestParseFrame_LooseIgnoresGarbagePairs(t *testing.T) {
	raw := []byte("type=join, , ==, parcelId=p-2, latitude=notanumber")

	f, err := ParseFrame(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Type != FrameJoin || f.ParcelID != "p-2" {
		t.Fatalf("unexpected frame: %+v", f)
	}
	if f.Latitude != nil {
		t.Fatalf("unparseable number should yield nil, got %v", *f.Latitude)
	}
}

func TestParseFrame_Invalid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"bad json", `{"type":`},
		{"json without type", `{"parcelId":"p-1"}`},
		{"loose without type", "parcelId=p-1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseFrame([]byte(tc.raw)); err == nil {
				t.Fatalf("expected error for %q", tc.raw)
			}
		})
	}
}

package canbus

import (
	"testing"
)

func TestExtractFrames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    []Frame
	}{
		{
			name:    "single frame",
			payload: "02|170125103000|0CF00400:FFFFFF0019FFFFFF*3A",
			want: []Frame{
				{ID: "0CF00400", Data: "FFFFFF0019FFFFFF"},
			},
		},
		{
			name:    "multiple frames with malformed tokens skipped",
			payload: "02|170125103000|0CF00400:FFFFFF0019FFFFFF|BADTOKEN|1234:ABCD|18FEF100:04003C81FFFFFFFF*55",
			want: []Frame{
				{ID: "0CF00400", Data: "FFFFFF0019FFFFFF"},
				{ID: "18FEF100", Data: "04003C81FFFFFFFF"},
			},
		},
		{
			name:    "lowercase hex uppercased",
			payload: "02|170125103000|0cf00400:ffffff0019ffffff*10",
			want: []Frame{
				{ID: "0CF00400", Data: "FFFFFF0019FFFFFF"},
			},
		},
		{
			name:    "no sentinel",
			payload: "170125103000|0CF00400:FFFFFF0019FFFFFF",
			want:    nil,
		},
		{
			name:    "sentinel with only timestamp",
			payload: "02|170125103000*00",
			want:    nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			frames := ExtractFrames(test.payload)

			if len(frames) != len(test.want) {
				t.Fatalf("got %d frames, want %d", len(frames), len(test.want))
			}
			for i, frame := range frames {
				if frame != test.want[i] {
					t.Errorf("frame %d: got %+v, want %+v", i, frame, test.want[i])
				}
			}
		})
	}
}

func TestPGN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		canID string
		want  uint32
	}{
		{"0CF00400", 61444},
		{"18FEF100", 65265},
		{"18FEC100", 65217},
		{"18F00500", 61445},
		{"NOTHEX00", 0},
	}

	for _, test := range tests {
		if got := PGN(test.canID); got != test.want {
			t.Errorf("PGN(%s) = %d, want %d", test.canID, got, test.want)
		}
	}
}

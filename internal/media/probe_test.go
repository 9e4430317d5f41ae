package media

import (
	"context"
	"errors"
	"strings"
	"testing"

	"clipforge/internal/errs"
)

func TestParseProbe(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Info
		wantErr bool
	}{
		{
			name: "video with audio",
			raw: `{"format":{"duration":"8.5"},"streams":[
				{"codec_type":"video","width":1280,"height":720},
				{"codec_type":"audio"}]}`,
			want: Info{HasVideo: true, Width: 1280, Height: 720, HasAudio: true, DurationSeconds: 8.5},
		},
		{
			name: "first video stream wins and stream duration fills in",
			raw: `{"format":{},"streams":[
				{"codec_type":"video","width":640,"height":360,"duration":"3.2"},
				{"codec_type":"video","width":1920,"height":1080,"duration":"1.0"}]}`,
			want: Info{HasVideo: true, Width: 640, Height: 360, DurationSeconds: 3.2},
		},
		{
			name: "audio only",
			raw:  `{"format":{"duration":"61.0"},"streams":[{"codec_type":"audio"}]}`,
			want: Info{HasAudio: true, DurationSeconds: 61},
		},
		{name: "no streams", raw: `{"format":{"duration":"1"},"streams":[]}`, wantErr: true},
		{name: "garbage", raw: `not json`, wantErr: true},
		{name: "empty", raw: ``, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseProbe([]byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseProbe = %+v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseProbe error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("parseProbe = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestProbeIdentifiesAsset(t *testing.T) {
	p := NewProber(&fakeRunner{}, "ffprobe", nil)
	_, err := p.Probe(context.Background(), "/scratch/clip.mp4")
	var ae *errs.AssetError
	if !errors.As(err, &ae) || ae.Asset != "/scratch/clip.mp4" || ae.Op != "probe" {
		t.Fatalf("Probe = %v, want asset error for the clip", err)
	}
	if errs.KindOf(err) != errs.KindAsset || !strings.Contains(err.Error(), "moov atom not found") {
		t.Fatalf("diagnostic lost: %v", err)
	}
}

func TestProbeSetsPath(t *testing.T) {
	runner := &fakeRunner{probe: []byte(`{"format":{"duration":"2"},"streams":[{"codec_type":"video","width":2,"height":2}]}`)}
	info, err := NewProber(runner, "", nil).Probe(context.Background(), "a.mp4")
	if err != nil {
		t.Fatalf("Probe error: %v", err)
	}
	if info.Path != "a.mp4" || !info.HasVideo {
		t.Fatalf("info = %+v", info)
	}
	if runner.calls[0][0] != "ffprobe" || runner.calls[0][len(runner.calls[0])-1] != "a.mp4" {
		t.Fatalf("call = %v", runner.calls[0])
	}
}

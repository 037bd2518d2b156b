package llm

import (
	"bytes"
	"errors"
	"testing"
)

func TestNormalizeFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"wav", "wav"},
		{".wav", "wav"},
		{".WAV", "wav"},
		{"MP3", "mp3"},
		{"..flac", "flac"},
	}
	for _, tt := range tests {
		if got := NormalizeFormat(tt.in); got != tt.want {
			t.Errorf("NormalizeFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateAudio(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		format  string
		wantErr bool
	}{
		{"valid wav", []byte("RIFF...."), "wav", false},
		{"valid dotted upper", []byte("data"), ".OGG", false},
		{"empty payload", nil, "wav", true},
		{"unsupported format", []byte("data"), "aiff", true},
		{"oversize", bytes.Repeat([]byte{0}, MaxAudioSize+1), "wav", true},
		{"exactly at ceiling", bytes.Repeat([]byte{0}, MaxAudioSize), "wav", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAudio(tt.data, tt.format)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAudio) {
					t.Errorf("ValidateAudio() error = %v, want ErrInvalidAudio", err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateAudio() error = %v", err)
			}
		})
	}
}

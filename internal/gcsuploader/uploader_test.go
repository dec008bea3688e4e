package gcsuploader

import "testing"

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://desk/transcripts/a.html", "desk", "transcripts/a.html", false},
		{"gs://desk/a.html", "desk", "a.html", false},
		{"gs://desk", "", "", true},
		{"gs://desk/", "", "", true},
		{"s3://desk/a.html", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGCSURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseGCSURI(%q) = %q, %q", tt.uri, bucket, object)
			}
		})
	}
}

func TestObjectFilename(t *testing.T) {
	tests := map[string]string{
		"gs://desk/transcripts/2024/05/transcript-x.html": "transcript-x.html",
		"gs://desk/a.html": "a.html",
		"gs://desk":        "desk",
	}
	for uri, want := range tests {
		if got := ObjectFilename(uri); got != want {
			t.Errorf("ObjectFilename(%q) = %q, want %q", uri, got, want)
		}
	}
}

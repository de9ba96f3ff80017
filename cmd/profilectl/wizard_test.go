package main

import (
	"testing"

	"github.com/micromdm/profilebuilder/payload"
)

func TestParseSetting(t *testing.T) {
	tests := []struct {
		kind    payload.Kind
		in      string
		want    payload.Value
		wantErr bool
	}{
		{kind: payload.KindString, in: "corp", want: payload.String("corp")},
		{kind: payload.KindInteger, in: " 12 ", want: payload.Integer(12)},
		{kind: payload.KindInteger, in: "twelve", wantErr: true},
		{kind: payload.KindReal, in: "1.5", want: payload.Real(1.5)},
		{kind: payload.KindReal, in: "x", wantErr: true},
		{kind: payload.KindStringArray, in: "a, b,,c ", want: payload.StringArray([]string{"a", "b", "c"})},
	}
	for _, tt := range tests {
		have, err := parseSetting(tt.kind, tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s %q: expected error", tt.kind, tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s %q: %s", tt.kind, tt.in, err)
		}
		if !have.Equal(tt.want) {
			t.Errorf("have %s, want %s", have, tt.want)
		}
	}
}

package jsoncol

import (
	"encoding/json"
	"testing"
)

func TestScanKeepsScalarDocuments(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{[]byte(`{"a":1}`), `{"a":1}`},
		{"2", "2"},
		{int64(2), "2"},
		{float64(2.5), "2.5"},
		{true, "true"},
	}
	for _, tc := range cases {
		var j JSON
		if err := j.Scan(tc.in); err != nil {
			t.Fatalf("Scan(%#v): %v", tc.in, err)
		}
		if j.String() != tc.want {
			t.Fatalf("Scan(%#v): want=%s got=%s", tc.in, tc.want, j)
		}
	}

	var j JSON = JSON(`"x"`)
	if err := j.Scan(nil); err != nil || j != nil {
		t.Fatalf("Scan(nil): j=%v err=%v", j, err)
	}
	if err := j.Scan(struct{}{}); err == nil {
		t.Fatalf("Scan(struct): expected error")
	}
}

func TestScanCopiesBytes(t *testing.T) {
	buf := []byte(`[1,2]`)
	var j JSON
	if err := j.Scan(buf); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	buf[1] = '9'
	if j.String() != "[1,2]" {
		t.Fatalf("Scan aliased the driver buffer: %s", j)
	}
}

func TestMarshalEmbedsRawDocument(t *testing.T) {
	out, err := json.Marshal(struct {
		Result JSON `json:"result"`
		Empty  JSON `json:"empty"`
	}{Result: JSON(`2`)})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"result":2,"empty":null}` {
		t.Fatalf("Marshal: got %s", out)
	}
}

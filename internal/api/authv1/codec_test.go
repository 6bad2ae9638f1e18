package authv1

import (
	"strings"
	"testing"

	"google.golang.org/grpc/encoding"
)

func TestCodec_Registered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	if c == nil {
		t.Fatalf("codec %q not registered", CodecName)
	}

	b, err := c.Marshal(&LoginResponse{Token: "t", User: User{ID: "u1", Role: "READER"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"token":"t"`) || strings.Contains(string(b), "avatar") {
		t.Fatalf("unexpected wire form: %s", b)
	}

	var out LoginResponse
	if err := c.Unmarshal(b, &out); err != nil || out.User.ID != "u1" {
		t.Fatalf("unmarshal: %+v %v", out, err)
	}
}

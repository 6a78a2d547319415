package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func writeAttachments(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	xmlPath := filepath.Join(dir, "nomina.xml")
	pdfPath := filepath.Join(dir, "ANA_LOPEZ-ABCD010101HDFXXX01.pdf")
	if err := os.WriteFile(xmlPath, []byte("<cfdi/>"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4"), 0644); err != nil {
		t.Fatal(err)
	}
	return xmlPath, pdfPath
}

func TestRender(t *testing.T) {
	xmlPath, pdfPath := writeAttachments(t)
	msg := Message{
		To:          "ana@x.com",
		Subject:     "Recibo de Nómina - Ana López",
		Body:        "Estimado(a) Ana López,",
		Attachments: []string{xmlPath, pdfPath},
	}

	var buf bytes.Buffer
	if err := render(&buf, "nominas@empresa.mx", msg); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"From: nominas@empresa.mx",
		"To: ana@x.com",
		"Subject: =?UTF-8?",
		`filename="nomina.xml"`,
		`filename="ANA_LOPEZ-ABCD010101HDFXXX01.pdf"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("message missing %q", want)
		}
	}
	if strings.Index(out, "nomina.xml") > strings.Index(out, "ANA_LOPEZ-ABCD010101HDFXXX01.pdf") {
		t.Error("attachments should keep their order")
	}
}

func TestRenderMissingAttachment(t *testing.T) {
	msg := Message{
		To:          "ana@x.com",
		Subject:     "s",
		Attachments: []string{filepath.Join(t.TempDir(), "missing.pdf")},
	}
	var buf bytes.Buffer
	if err := render(&buf, "a@b.c", msg); err == nil {
		t.Error("expected error for missing attachment")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		to   string
		err  error
	}{
		{"address", "ana@x.com", nil},
		{"empty", "", ErrNoRecipient},
		{"blank", "   ", ErrNoRecipient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := (Message{To: tt.to}).Validate(); !errors.Is(err, tt.err) {
				t.Errorf("Validate() = %v, expected %v", err, tt.err)
			}
		})
	}
}

func TestDryRun(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	n := NewDryRun(&logger)

	err := n.Send(context.Background(), Message{
		To:          "ana@x.com",
		Subject:     "Recibo de Nómina - Ana López",
		Attachments: []string{"/tmp/in/nomina.xml", "/tmp/pdf/ANA_LOPEZ-ABCD010101HDFXXX01.pdf"},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	out := logs.String()
	if !strings.Contains(out, "dry run") || !strings.Contains(out, "ana@x.com") || !strings.Contains(out, "nomina.xml") {
		t.Errorf("unexpected log: %s", out)
	}
	if strings.Contains(out, "/tmp/in") {
		t.Error("attachments should be logged by base name")
	}

	if err := n.Send(context.Background(), Message{}); !errors.Is(err, ErrNoRecipient) {
		t.Errorf("expected ErrNoRecipient, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.Send(ctx, Message{To: "ana@x.com"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSMTPRejectsBeforeDialing(t *testing.T) {
	n := NewSMTP(SMTPConfig{Host: "127.0.0.1", Port: 1, Sender: "a@b.c"})

	if err := n.Send(context.Background(), Message{}); !errors.Is(err, ErrNoRecipient) {
		t.Errorf("expected ErrNoRecipient, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.Send(ctx, Message{To: "ana@x.com"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewSMTPDefaults(t *testing.T) {
	n := NewSMTP(SMTPConfig{Sender: "a@b.c", Password: "secret"})
	if n.dialer.Host != DefaultSMTPHost || n.dialer.Port != DefaultSMTPPort {
		t.Errorf("dialer = %s:%d", n.dialer.Host, n.dialer.Port)
	}
	if n.dialer.Timeout != DefaultSMTPTimeout {
		t.Errorf("Timeout = %v", n.dialer.Timeout)
	}
}

func TestGmailSend(t *testing.T) {
	var raw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/users/me/messages/send") {
			http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusNotFound)
			return
		}
		var body struct {
			Raw string `json:"raw"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		raw = body.Raw
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg-1"}`))
	}))
	defer srv.Close()

	n, err := NewGmail(context.Background(), GmailConfig{Endpoint: srv.URL + "/", Sender: "nominas@empresa.mx"})
	if err != nil {
		t.Fatalf("NewGmail: %v", err)
	}

	xmlPath, pdfPath := writeAttachments(t)
	err = n.Send(context.Background(), Message{
		To:          "ana@x.com",
		Subject:     "Recibo de Nómina - Ana López",
		Body:        "Estimado(a) Ana López,",
		Attachments: []string{xmlPath, pdfPath},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	decoded, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		t.Fatalf("raw is not base64url: %v", err)
	}
	if !bytes.Contains(decoded, []byte("To: ana@x.com")) {
		t.Errorf("raw message missing recipient:\n%s", decoded)
	}
	if !bytes.Contains(decoded, []byte(`filename="ANA_LOPEZ-ABCD010101HDFXXX01.pdf"`)) {
		t.Error("raw message missing PDF attachment")
	}
}

func TestNewGmailMissingCredentials(t *testing.T) {
	_, err := NewGmail(context.Background(), GmailConfig{
		CredentialsPath: filepath.Join(t.TempDir(), "credentials.json"),
		TokenPath:       filepath.Join(t.TempDir(), "token.json"),
	})
	if err == nil {
		t.Error("expected error for missing credentials file")
	}
}

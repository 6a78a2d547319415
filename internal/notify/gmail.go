package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailConfig holds the OAuth2 files of a Gmail API sender.
type GmailConfig struct {
	// CredentialsPath is the OAuth client JSON from Google Cloud Console.
	CredentialsPath string

	// TokenPath is a previously authorized token with the gmail.send scope.
	TokenPath string

	// Sender is the From address; empty lets Gmail use the account address.
	Sender string

	// Endpoint overrides the API endpoint and disables authentication
	// (emulators and tests).
	Endpoint string

	Logger *zerolog.Logger
}

// GmailNotifier sends messages with users.messages.send.
type GmailNotifier struct {
	service *gmail.Service
	sender  string
	userID  string
	logger  *zerolog.Logger
}

// NewGmail creates a GmailNotifier from the stored credentials and token.
// There is no interactive authorization: the token file must exist.
func NewGmail(ctx context.Context, cfg GmailConfig) (*GmailNotifier, error) {
	if cfg.Logger == nil {
		nop := zerolog.Nop()
		cfg.Logger = &nop
	}

	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts,
			option.WithEndpoint(cfg.Endpoint),
			option.WithHTTPClient(&http.Client{}),
			option.WithoutAuthentication(),
		)
	} else {
		client, err := oauthClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithHTTPClient(client))
	}

	service, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}

	return &GmailNotifier{
		service: service,
		sender:  cfg.Sender,
		userID:  "me",
		logger:  cfg.Logger,
	}, nil
}

func oauthClient(ctx context.Context, cfg GmailConfig) (*http.Client, error) {
	credBytes, err := os.ReadFile(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(credBytes, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	token, err := loadToken(cfg.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("unable to load token %s: %w", cfg.TokenPath, err)
	}

	return oauthConfig.Client(ctx, token), nil
}

func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, err
	}
	return token, nil
}

// Send delivers msg as a raw RFC 822 message.
func (n *GmailNotifier) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := render(&buf, n.sender, msg); err != nil {
		return err
	}

	raw := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(buf.Bytes())}
	sent, err := n.service.Users.Messages.Send(n.userID, raw).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail send: %w", err)
	}

	n.logger.Debug().
		Str("to", msg.To).
		Str("gmail_id", sent.Id).
		Msg("message sent via gmail")
	return nil
}

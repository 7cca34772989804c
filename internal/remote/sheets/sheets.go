// Package sheets mirrors budget documents to a Google Spreadsheet, one row
// per user id. The spreadsheet acts as the shared document store: column A
// holds the user id, B the revision, C the update timestamp and D the JSON
// state document.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"budgetd/internal/remote"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ remote.DocumentStore = (*Client)(nil)

// New creates a document store over the given spreadsheet. Credentials come
// from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Budgets"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// newSheetsService initializes a Sheets Service. Service account credentials
// take precedence; a user OAuth token saved by oauth-init works as fallback.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		if ts, err := oauthTokenSource(ctx); err == nil {
			return gsheet.NewService(ctx, goption.WithTokenSource(ts))
		}
		return nil, errors.New("missing credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS, or run oauth-init)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// oauthTokenSource builds a token source from the OAuth client config and the
// token file written by oauth-init.
func oauthTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	clientJSON := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"))
	clientFile := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"))

	var b []byte
	var err error
	switch {
	case clientJSON != "":
		b = []byte(clientJSON)
	case clientFile != "":
		b, err = os.ReadFile(clientFile)
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
	default:
		return nil, errors.New("no oauth client configured")
	}

	cfg, err := google.ConfigFromJSON(b, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client config: %w", err)
	}

	tokenFile := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE"))
	if tokenFile == "" {
		tokenFile = "token.json"
	}
	data, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token file: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	return cfg.TokenSource(ctx, &tok), nil
}

func (c *Client) Get(ctx context.Context, userID string) (remote.Document, error) {
	row, values, err := c.findRow(ctx, userID)
	if err != nil {
		return remote.Document{}, err
	}
	if row == 0 {
		return remote.Document{}, remote.ErrNotFound
	}

	doc := remote.Document{}
	if len(values) > 1 {
		if rev, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(values[1])), 10, 64); err == nil {
			doc.Revision = rev
		}
	}
	if len(values) > 2 {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(fmt.Sprint(values[2]))); err == nil {
			doc.UpdatedAt = t
		}
	}
	if len(values) > 3 {
		doc.Data = []byte(fmt.Sprint(values[3]))
	}
	if len(doc.Data) == 0 {
		return remote.Document{}, remote.ErrNotFound
	}
	return doc, nil
}

func (c *Client) Put(ctx context.Context, userID string, doc remote.Document) error {
	row, _, err := c.findRow(ctx, userID)
	if err != nil {
		return err
	}

	values := &gsheet.ValueRange{Values: [][]any{{
		userID,
		strconv.FormatInt(doc.Revision, 10),
		doc.UpdatedAt.UTC().Format(time.RFC3339),
		string(doc.Data),
	}}}

	if row == 0 {
		rng := fmt.Sprintf("%s!A:D", c.sheetName)
		_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, values).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("append document row for %s: %w", userID, err)
		}
		return nil
	}

	rng := fmt.Sprintf("%s!A%d:D%d", c.sheetName, row, row)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, values).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update document row for %s: %w", userID, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, userID string) error {
	row, _, err := c.findRow(ctx, userID)
	if err != nil {
		return err
	}
	if row == 0 {
		return nil
	}

	rng := fmt.Sprintf("%s!A%d:D%d", c.sheetName, row, row)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear document row for %s: %w", userID, err)
	}
	return nil
}

// findRow locates the user's row. Row numbers are 1-based; 0 means absent.
func (c *Client) findRow(ctx context.Context, userID string) (int, []any, error) {
	rng := fmt.Sprintf("%s!A:D", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, nil, fmt.Errorf("read %s: %w", rng, err)
	}
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == userID {
			return i + 1, row, nil
		}
	}
	return 0, nil, nil
}

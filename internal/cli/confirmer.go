package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joshsymonds/ledgerflow/internal/common"
	"github.com/joshsymonds/ledgerflow/internal/engine"
	"github.com/joshsymonds/ledgerflow/internal/model"
)

// DescriptionValidator answers whether a description is a standard
// aggregate description for an account. *rules.Set satisfies it.
type DescriptionValidator interface {
	ValidFor(desc, account string) bool
}

// Confirmer implements engine.Confirmer with a terminal prompt. It
// shows the candidate entry with its file and line context and lets
// the reviewer accept it, pick an account or standard description from
// the rule-derived menus, type corrections, or discard the row.
type Confirmer struct {
	writer    io.Writer
	reader    *NonBlockingReader
	validator DescriptionValidator
}

// NewConfirmer creates a terminal confirmer. A nil reader or writer
// defaults to stdin/stderr; prompts never go to stdout, which carries
// the ledger output.
func NewConfirmer(reader io.Reader, writer io.Writer, validator DescriptionValidator) *Confirmer {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stderr
	}
	return &Confirmer{
		reader:    NewNonBlockingReader(reader),
		writer:    writer,
		validator: validator,
	}
}

// Confirm prompts for one entry and blocks until the reviewer decides.
func (c *Confirmer) Confirm(ctx context.Context, req engine.ConfirmRequest) (model.Entry, error) {
	entry := req.Candidate

	for {
		select {
		case <-ctx.Done():
			return model.Entry{}, ctx.Err()
		default:
		}

		if err := c.showEntry(req, entry); err != nil {
			return model.Entry{}, err
		}

		choice, err := c.promptChoice(ctx)
		if err != nil {
			return model.Entry{}, err
		}

		switch choice {
		case "a":
			return entry, nil
		case "c":
			account, pickErr := c.pickFromMenu(ctx, "Account", req.Accounts)
			if pickErr != nil {
				return model.Entry{}, pickErr
			}
			if account != "" {
				entry.Account = account
			}
		case "s":
			desc, pickErr := c.pickFromMenu(ctx, "Standard description", req.AggregateDescriptions)
			if pickErr != nil {
				return model.Entry{}, pickErr
			}
			// Only adopt descriptions that belong to the chosen account.
			if desc != "" && c.validator != nil && c.validator.ValidFor(desc, entry.Account) {
				entry.Description = desc
			} else if desc != "" {
				if _, err := fmt.Fprintln(c.writer, FormatWarning(fmt.Sprintf("%q is not an aggregate description for %q", desc, entry.Account))); err != nil {
					return model.Entry{}, fmt.Errorf("failed to write warning: %w", err)
				}
			}
		case "e":
			desc, readErr := c.promptText(ctx, "Description")
			if readErr != nil {
				return model.Entry{}, readErr
			}
			if desc != "" {
				entry.Description = desc
			}
		case "x":
			return model.Entry{}, common.ErrEntryDiscarded
		}
	}
}

// showEntry renders the entry under review with its source context.
func (c *Confirmer) showEntry(req engine.ConfirmRequest, entry model.Entry) error {
	account := entry.Account
	if account == "" {
		account = SubtleStyle.Render("(unresolved)")
	}

	content := fmt.Sprintf("%s\n\nDate:        %s\nAmount:      %s\nAccount:     %s\nDescription: %s",
		SubtleStyle.Render(fmt.Sprintf("%s, line %d", req.Filename, req.Line)),
		entry.Date,
		entry.Amount.StringFixed(2),
		account,
		entry.Description)

	if _, err := fmt.Fprintln(c.writer, RenderBox("Review Entry", content)); err != nil {
		return fmt.Errorf("failed to write entry box: %w", err)
	}

	options := "  [A] Accept as shown\n" +
		"  [C] Choose account\n" +
		"  [S] Choose standard description\n" +
		"  [E] Edit description\n" +
		"  [X] Discard this entry"
	if _, err := fmt.Fprintln(c.writer, options); err != nil {
		return fmt.Errorf("failed to write options: %w", err)
	}
	return nil
}

// promptChoice reads one of the valid single-letter choices, reprompting
// on anything else.
func (c *Confirmer) promptChoice(ctx context.Context) (string, error) {
	valid := map[string]bool{"a": true, "c": true, "s": true, "e": true, "x": true}

	for {
		if _, err := fmt.Fprint(c.writer, FormatPrompt("Choice")); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}
		line, err := c.reader.ReadLine(ctx)
		if err != nil {
			return "", err
		}
		choice := strings.ToLower(strings.TrimSpace(line))
		if valid[choice] {
			return choice, nil
		}
		if _, err := fmt.Fprintln(c.writer, FormatWarning("Please choose A, C, S, E, or X")); err != nil {
			return "", fmt.Errorf("failed to write warning: %w", err)
		}
	}
}

// pickFromMenu shows a numbered menu and returns the chosen item, or
// "" when the reviewer leaves the selection empty.
func (c *Confirmer) pickFromMenu(ctx context.Context, label string, items []string) (string, error) {
	if len(items) == 0 {
		if _, err := fmt.Fprintln(c.writer, FormatWarning("No "+strings.ToLower(label)+" menu available")); err != nil {
			return "", fmt.Errorf("failed to write warning: %w", err)
		}
		return c.promptText(ctx, label)
	}

	for i, item := range items {
		if _, err := fmt.Fprintf(c.writer, "  %2d. %s\n", i+1, item); err != nil {
			return "", fmt.Errorf("failed to write menu item: %w", err)
		}
	}

	for {
		if _, err := fmt.Fprint(c.writer, FormatPrompt(label+" (number or blank)")); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}
		line, err := c.reader.ReadLine(ctx)
		if err != nil {
			return "", err
		}
		if line == "" {
			return "", nil
		}
		n, convErr := strconv.Atoi(line)
		if convErr == nil && n >= 1 && n <= len(items) {
			return items[n-1], nil
		}
		if _, err := fmt.Fprintln(c.writer, FormatWarning("Enter a number from the menu, or leave blank")); err != nil {
			return "", fmt.Errorf("failed to write warning: %w", err)
		}
	}
}

// promptText reads a free-form line.
func (c *Confirmer) promptText(ctx context.Context, label string) (string, error) {
	if _, err := fmt.Fprint(c.writer, FormatPrompt(label)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}
	return c.reader.ReadLine(ctx)
}

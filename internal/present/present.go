// Package present renders workflow results on the terminal. It implements
// syncflow.Reporter and syncflow.Confirmer.
package present

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/hazyhaar/hyperaide-sync/capture"
	"github.com/hazyhaar/hyperaide-sync/syncapi"
	"github.com/hazyhaar/hyperaide-sync/syncflow"
)

var (
	Accent  = lipgloss.Color("#00B8D4")
	Success = lipgloss.Color("#8BC34A")
	Danger  = lipgloss.Color("#E53935")
	Warning = lipgloss.Color("#FFC107")
	Muted   = lipgloss.Color("#8A8F98")
)

// Styles groups the lipgloss styles used for each line kind.
type Styles struct {
	Logo    lipgloss.Style
	Accent  lipgloss.Style
	Success lipgloss.Style
	Danger  lipgloss.Style
	Warning lipgloss.Style
	Muted   lipgloss.Style
	Header  lipgloss.Style
}

// DefaultStyles returns the standard palette.
func DefaultStyles() Styles {
	return Styles{
		Logo:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2196F3")),
		Accent:  lipgloss.NewStyle().Bold(true).Foreground(Accent),
		Success: lipgloss.NewStyle().Foreground(Success),
		Danger:  lipgloss.NewStyle().Foreground(Danger),
		Warning: lipgloss.NewStyle().Foreground(Warning),
		Muted:   lipgloss.NewStyle().Foreground(Muted),
		Header:  lipgloss.NewStyle().Bold(true).Foreground(Muted),
	}
}

// Presenter writes styled lines to out and reads confirmations from in.
type Presenter struct {
	out    io.Writer
	in     *bufio.Reader
	styles Styles

	// ManageURL is printed after a sync.
	ManageURL string
}

// New creates a Presenter. in may be nil when no prompt is needed.
func New(out io.Writer, in io.Reader) *Presenter {
	p := &Presenter{out: out, styles: DefaultStyles()}
	if in != nil {
		p.in = bufio.NewReader(in)
	}
	return p
}

// Banner prints the tool name.
func (p *Presenter) Banner() {
	fmt.Fprintln(p.out, p.styles.Logo.Render("HYPERAIDE"))
	fmt.Fprintln(p.out, p.styles.Muted.Render("  Browser Auth Sync CLI"))
	fmt.Fprintln(p.out)
}

// Step prints a progress line with a marker.
func (p *Presenter) Step(marker, msg string) {
	if marker == "" {
		marker = "•"
	}
	fmt.Fprintf(p.out, "%s  %s\n", p.styles.Accent.Render(marker), msg)
}

// Subtle prints an indented muted line.
func (p *Presenter) Subtle(msg string) {
	fmt.Fprintln(p.out, "    "+p.styles.Muted.Render(msg))
}

// Successf prints a success line.
func (p *Presenter) Successf(format string, args ...any) {
	fmt.Fprintf(p.out, "%s  %s\n", p.styles.Success.Render("✔"), fmt.Sprintf(format, args...))
}

// Errorf prints an error line.
func (p *Presenter) Errorf(format string, args ...any) {
	fmt.Fprintln(p.out, p.styles.Danger.Render("✖  "+fmt.Sprintf(format, args...)))
}

// SitesTable renders sites as Site/Domain[/Status] columns.
func (p *Presenter) SitesTable(sites []syncapi.Site, withStatus bool) string {
	headers := []string{"Site", "Domain"}
	if withStatus {
		headers = append(headers, "Status")
	}
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingRight(2)
			switch {
			case row == table.HeaderRow:
				return s.Inherit(p.styles.Header)
			case col == 1:
				return s.Inherit(p.styles.Muted)
			case col == 2:
				return s.Inherit(p.styles.Success)
			}
			return s
		})
	for _, site := range sites {
		row := []string{site.Name(), site.Domain}
		if withStatus {
			row = append(row, site.State())
		}
		t.Row(row...)
	}
	return t.String()
}

// Existing implements syncflow.Reporter.
func (p *Presenter) Existing(sites []syncapi.Site) {
	p.Step("", fmt.Sprintf("Found %d previously connected site(s)", len(sites)))
	fmt.Fprintln(p.out)
}

// CaptureStarted implements syncflow.Reporter.
func (p *Presenter) CaptureStarted() {
	p.Step("🔒", "Opening secure browser window...")
	p.Subtle("Log in to your sites. Close the browser when done.")
}

// Captured implements syncflow.Reporter.
func (p *Presenter) Captured(res *capture.Result) {
	if res.Cancelled() {
		fmt.Fprintln(p.out)
		p.Errorf("Sync cancelled")
		return
	}
	if len(res.Domains) > 0 {
		p.Step("", fmt.Sprintf("Captured session data from %d domain(s)", len(res.Domains)))
	} else {
		p.Step("", "No domains visited")
	}
}

// SyncOutcome prints the end of a sync.
func (p *Presenter) SyncOutcome(o *syncflow.SyncOutcome) {
	switch {
	case o.Cancelled:
		return
	case o.NothingCaptured:
		p.Errorf("No authentication cookies captured")
		return
	case o.Result == nil:
		return
	case o.Result.Rejected != "":
		p.Errorf("Sync skipped: %s", o.Result.Rejected)
		return
	case len(o.Result.ConnectedSites) == 0:
		p.Errorf("No authenticated sites detected")
		p.Subtle("Did you log in before closing the browser?")
		return
	}

	p.Successf("Successfully synced %d site(s)", len(o.Result.ConnectedSites))
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.SitesTable(o.Result.ConnectedSites, false))
	if p.ManageURL != "" {
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, "  "+p.styles.Muted.Render("Manage connected sites at "+p.ManageURL))
	}
}

// Status prints the server's view of the sync.
func (p *Presenter) Status(st *syncapi.StatusResult) {
	if st.Status == syncapi.StatusNotSynced {
		p.Step("○", "No browser sync configured")
		p.Subtle("Run hyperaide-sync to sync your browser authentication")
		return
	}
	if len(st.ConnectedSites) == 0 {
		fmt.Fprintf(p.out, "%s  %s\n", p.styles.Warning.Render("⚠"),
			"Browser sync is active but no sites are connected")
		return
	}
	fmt.Fprintln(p.out, p.SitesTable(st.ConnectedSites, true))
	if st.LastSyncedAt != nil {
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, p.styles.Muted.Render("Last synced: "+st.LastSyncedAt.String()))
	}
}

// ResetDone prints the reset epilogue.
func (p *Presenter) ResetDone(done bool) {
	if !done {
		p.Subtle("Reset cancelled")
		return
	}
	p.Successf("Browser sync has been reset")
	p.Subtle("Run hyperaide-sync to start a new session")
}

// Confirm implements syncflow.Confirmer. Anything but y/yes is a no,
// including end of input.
func (p *Presenter) Confirm(question string) (bool, error) {
	if p.in == nil {
		return false, nil
	}
	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Package cli is the text menu front end. It is thin glue: prompts,
// input parsing, and display. All rules live in the registries, ledgers,
// and services; the CLI catches their typed errors and shows the
// message, nothing more.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/institutehq/institute-api/internal/auth"
	"github.com/institutehq/institute-api/internal/ledger"
	"github.com/institutehq/institute-api/internal/registry"
	"github.com/institutehq/institute-api/internal/report"
	"github.com/institutehq/institute-api/internal/types"
)

// UI drives the menu loop over an input reader and output writer, so
// tests can feed it scripted input.
type UI struct {
	users      *auth.Service
	regs       *registry.Registries
	payments   *ledger.PaymentLedger
	attendance *ledger.AttendanceLedger
	reports    *report.Service

	in  *bufio.Reader
	out io.Writer
}

// New wires the UI.
func New(users *auth.Service, regs *registry.Registries, payments *ledger.PaymentLedger,
	attendance *ledger.AttendanceLedger, reports *report.Service, in *bufio.Reader, out io.Writer) *UI {
	return &UI{
		users:      users,
		regs:       regs,
		payments:   payments,
		attendance: attendance,
		reports:    reports,
		in:         in,
		out:        out,
	}
}

// Run is the top-level loop: register, log in, or exit. It returns when
// the operator chooses to exit or input ends.
func (ui *UI) Run() {
	if !ui.users.HasAdmin() {
		fmt.Fprintln(ui.out, "No admin account yet. Create one to begin.")
		ui.register(types.RoleAdmin)
	}

	for {
		fmt.Fprintln(ui.out, "\n=== INSTITUTE ADMIN ===")
		fmt.Fprintln(ui.out, "1) Login")
		fmt.Fprintln(ui.out, "2) Register student account")
		fmt.Fprintln(ui.out, "0) Exit")
		fmt.Fprint(ui.out, "> ")

		switch ui.readLine() {
		case "1":
			user, ok := ui.login()
			if !ok {
				continue
			}
			if user.Role == types.RoleAdmin {
				ui.adminMenu()
			} else {
				ui.studentMenu(user)
			}
		case "2":
			ui.register(types.RoleUser)
		default:
			return
		}
	}
}

func (ui *UI) register(role types.Role) {
	fmt.Fprint(ui.out, "Username: ")
	username := ui.readLine()
	fmt.Fprint(ui.out, "Password: ")
	password := ui.readLine()

	user, err := ui.users.Register(username, password, role)
	if err != nil {
		ui.printErr(err)
		return
	}
	fmt.Fprintf(ui.out, "Account %q created (id %d).\n", user.Username, user.ID)
}

func (ui *UI) login() (types.User, bool) {
	fmt.Fprint(ui.out, "Username: ")
	username := ui.readLine()
	fmt.Fprint(ui.out, "Password: ")
	password := ui.readLine()

	user, err := ui.users.Login(username, password)
	if err != nil {
		ui.printErr(err)
		return types.User{}, false
	}
	fmt.Fprintf(ui.out, "Welcome, %s!\n", user.Username)
	return user, true
}

// ── input helpers ────────────────────────────────────────────────────

func (ui *UI) readLine() string {
	line, err := ui.in.ReadString('\n')
	if err != nil && line == "" {
		return "0" // input ended; treat as exit
	}
	return strings.TrimSpace(line)
}

func (ui *UI) readInt(prompt string) (int, bool) {
	fmt.Fprint(ui.out, prompt)
	n, err := strconv.Atoi(ui.readLine())
	if err != nil {
		fmt.Fprintln(ui.out, "Not a number.")
		return 0, false
	}
	return n, true
}

func (ui *UI) readDecimal(prompt string) (decimal.Decimal, bool) {
	fmt.Fprint(ui.out, prompt)
	d, err := decimal.NewFromString(ui.readLine())
	if err != nil {
		fmt.Fprintln(ui.out, "Not an amount.")
		return decimal.Zero, false
	}
	return d, true
}

func (ui *UI) printErr(err error) {
	fmt.Fprintln(ui.out, "Error:", err)
}

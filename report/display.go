package report

import (
	"fmt"
	"strings"

	"github.com/kr/pretty"
	"github.com/pterm/pterm"

	"cirlower/ir"
)

var (
	WarnColorFG  = pterm.FgYellow
	WarnStyleBG  = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	ErrorColorFG = pterm.FgRed
	ErrorStyleBG = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	InfoColorFG  = pterm.FgLightGreen
	InfoStyleBG  = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
)

// displayFatal displays a fatal error message.
func displayFatal(message string) {
	ErrorStyleBG.Print("Fatal Error")
	ErrorColorFG.Println(" " + message)
}

// displayStdError displays a standard Go error.
func displayStdError(err error) {
	ErrorStyleBG.Print("Error")
	ErrorColorFG.Println(" " + err.Error())
}

// displayWarning displays a warning message.
func displayWarning(message string) {
	WarnStyleBG.Print("Warning")
	WarnColorFG.Println(" " + message)
}

// displayInfo displays an informational message.
func displayInfo(message string) {
	InfoStyleBG.Print("Info")
	InfoColorFG.Println(" " + message)
}

// -----------------------------------------------------------------------------

// displayDiagnostic displays a lowering diagnostic: a banner naming its kind,
// the message, and at verbose level a dump of the offending operation.
func displayDiagnostic(d *Diagnostic, verbose bool) {
	displayBanner(d)
	fmt.Println(d.Error())

	if verbose && d.Op != nil {
		fmt.Println()
		fmt.Println(d.Op.Repr())
		fmt.Println(dumpAttrs(d.Op))
	}
}

// displayBanner displays the banner on top of all diagnostics.
func displayBanner(d *Diagnostic) {
	fmt.Print("\n-- ")

	title := strings.Title(d.Kind.String())
	ErrorStyleBG.Print(title)
	fmt.Print(" ")

	opName := "<module>"
	if d.Op != nil {
		opName = d.Op.Name
	}

	bannerLen := pterm.GetTerminalWidth() / 2
	if bannerLen > 50 {
		bannerLen = 50
	}

	dashCount := bannerLen - len(title) - len(opName) - 1
	if dashCount < 1 {
		dashCount = 1
	}

	fmt.Print(strings.Repeat("-", dashCount) + " ")
	InfoColorFG.Println(opName)
}

// dumpAttrs renders the attributes of op as a structural dump.
func dumpAttrs(op *ir.Operation) string {
	return pretty.Sprint(op.Attrs)
}

// displayTable renders rows under a header row.
func displayTable(header []string, rows [][]string) {
	data := pterm.TableData{header}
	data = append(data, rows...)

	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		displayStdError(err)
	}
}

package repl

import (
	"fmt"
)

func (r *REPL) print(s string) {
	fmt.Fprintln(r.out, s)
	fmt.Fprintln(r.out)
}

func (r *REPL) displayError(err error) {
	r.print(r.formatter.FormatError(err))
}

func (r *REPL) displayWelcome() {
	fmt.Fprint(r.out, r.formatter.FormatWelcome(r.config.Store.Backend))
}

func (r *REPL) displayHelp() {
	fmt.Fprint(r.out, r.formatter.FormatHelp())
}

func (r *REPL) displayInfo(msg string) {
	r.print(r.formatter.FormatInfo(msg))
}

func (r *REPL) displaySystem(msg string) {
	r.print(r.formatter.FormatSystem(msg))
}

func (r *REPL) displayWarning(msg string) {
	r.print(r.formatter.FormatWarning(msg))
}

package protocol

import (
	"strconv"
	"strings"
)

// strategy is one row of SHOW STRAT's listing.
type strategy struct {
	Name        string
	Description string
}

var strategies = []strategy{
	{Name: "EXACT", Description: "Match words exactly"},
	{Name: "PREFIX", Description: "Match word prefixes"},
}

func (s *Session) handleShow(args []string) error {
	if len(args) != 1 {
		return s.writeLine("501 syntax error, illegal parameters")
	}

	item := strings.ToUpper(args[0])
	switch item {
	case "DB", "DATABASES":
		return s.showDatabases()
	case "STRAT", "STRATEGIES":
		return s.showStrategies()
	case "INFO", "SERVER", "CLIENT":
		s.state = StateClosing
		return s.writeLine("502 '" + item + "' unimplemented")
	default:
		return s.writeLine("501 syntax error, illegal parameters")
	}
}

func (s *Session) showDatabases() error {
	dbs := s.reg.ShowDatabases()
	if err := s.writeLine(countLine(110, len(dbs), "databases present")); err != nil {
		return err
	}
	for _, d := range dbs {
		if err := s.writeLine(d.ShortName + ` "` + d.LongName + `"`); err != nil {
			return err
		}
	}
	if err := s.writeLine(`all "All databases"`); err != nil {
		return err
	}
	if err := s.writeLine("."); err != nil {
		return err
	}
	return s.writeLine("250 ok")
}

func (s *Session) showStrategies() error {
	if err := s.writeLine(countLine(111, len(strategies), "strategies present")); err != nil {
		return err
	}
	for _, st := range strategies {
		if err := s.writeLine(st.Name + ` "` + st.Description + `"`); err != nil {
			return err
		}
	}
	if err := s.writeLine("."); err != nil {
		return err
	}
	return s.writeLine("250 ok")
}

func countLine(code, n int, suffix string) string {
	return strconv.Itoa(code) + " " + strconv.Itoa(n) + " " + suffix
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db      *sqlx.DB
	acadSvc *academic.Service
	conf    *core.Config
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - manage DB migrations (goose commands)")
	fmt.Println("  promote -rolls ROLL[,ROLL...] - promote students to their next semester")
	fmt.Println("  demote -rolls ROLL[,ROLL...] - demote students to their previous semester")
	fmt.Println("  mktoken -id ID -roles ROLE[,ROLE...] [-name NAME] [-email EMAIL] - issue a signed JWT")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	promoteCmd := flag.NewFlagSet("promote", flag.ExitOnError)
	promoteRolls := promoteCmd.String("rolls", "", "Comma-separated student roll numbers.")

	demoteCmd := flag.NewFlagSet("demote", flag.ExitOnError)
	demoteRolls := demoteCmd.String("rolls", "", "Comma-separated student roll numbers.")

	mktokenCmd := flag.NewFlagSet("mktoken", flag.ExitOnError)
	mktokenID := mktokenCmd.String("id", "", "The actor's ID (staff ID or student roll number).")
	mktokenName := mktokenCmd.String("name", "", "The actor's full name.")
	mktokenEmail := mktokenCmd.String("email", "", "The actor's email address.")
	mktokenRoles := mktokenCmd.String("roles", "", "Comma-separated roles.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "promote":
		if err := promoteCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *promoteRolls == "" {
			promoteCmd.Usage()
			return errHelp
		}
		return cli.promote(splitList(*promoteRolls))
	case "demote":
		if err := demoteCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *demoteRolls == "" {
			demoteCmd.Usage()
			return errHelp
		}
		return cli.demote(splitList(*demoteRolls))
	case "mktoken":
		if err := mktokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *mktokenID == "" || *mktokenRoles == "" {
			mktokenCmd.Usage()
			return errHelp
		}
		return cli.mktoken(*mktokenID, *mktokenName, *mktokenEmail, splitList(*mktokenRoles))
	default:
		cli.printUsage()
		return errHelp
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

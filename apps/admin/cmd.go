package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/shieldhq/shield/core/catalog"
	"github.com/shieldhq/shield/core/org"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sqlx.DB
	orgSvc     *org.Service
	catalogSvc *catalog.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a migration command (up, down, status, ...)")
	fmt.Println("  createorg -name NAME -email EMAIL [-admin] - create or update an organization account")
	fmt.Println("  resetpassword -email EMAIL - reset an organization's password")
	fmt.Println("  seedcatalog - load the default question catalog")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createOrgCmd := flag.NewFlagSet("createorg", flag.ExitOnError)
	createOrgName := createOrgCmd.String("name", "", "The organization's name.")
	createOrgEmail := createOrgCmd.String("email", "", "The organization's email. The password will be prompted next.")
	createOrgAdmin := createOrgCmd.Bool("admin", false, "Grant the account admin rights.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The organization's email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "createorg":
		if err := createOrgCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createOrgName == "" || *createOrgEmail == "" {
			createOrgCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			if err == errHelp {
				createOrgCmd.Usage()
			}
			return err
		}
		return cli.createOrg(*createOrgName, *createOrgEmail, pwd, *createOrgAdmin)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			if err == errHelp {
				resetPasswordCmd.Usage()
			}
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)
	case "seedcatalog":
		return cli.seedCatalog()
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errHelp
	}
	return string(pwd), nil
}

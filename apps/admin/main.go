package main

import (
	"log"
	"os"

	"github.com/shieldhq/shield/core"
	"github.com/shieldhq/shield/core/catalog"
	"github.com/shieldhq/shield/core/org"
	emailsvc "github.com/shieldhq/shield/services/email"
	"github.com/shieldhq/shield/storage/database"
	sqlxrepos "github.com/shieldhq/shield/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	// start CLI
	cli := commandLine{
		db:         db,
		orgSvc:     org.NewService(sqlxrepos.NewOrganizationRepository(db), emailsvc.NewConsoleService(conf), conf),
		catalogSvc: catalog.NewService(sqlxrepos.NewCatalogRepository(db)),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}

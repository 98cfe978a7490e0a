package main

import (
	"log"
	"os"

	"github.com/trezcool/studyplan/core"
	logsvc "github.com/trezcool/studyplan/services/logger"
	"github.com/trezcool/studyplan/storage/database"
	sqlxrepos "github.com/trezcool/studyplan/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger, err := logsvc.NewLogger("admin", conf)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if conf.Database.InMemory {
		logger.Fatal("admin commands need a database; in-memory storage is enabled")
	}

	// set up DB
	if err = database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("setting up database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}

	// start CLI
	cli := commandLine{
		db:      db.DB,
		usrRepo: sqlxrepos.NewUserRepository(db),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}

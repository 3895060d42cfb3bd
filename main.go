package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"

	"ordersaga/app"
	"ordersaga/config"
	"ordersaga/db"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		logrus.WithError(err).Fatal("parse config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := db.Open(cfg.DB.ConnectionString)
	if err != nil {
		logrus.WithError(err).Fatal("open database")
	}
	defer store.Close()

	a, err := app.New(cfg, store)
	if err != nil {
		logrus.WithError(err).Fatal("build app")
	}

	if err := a.Run(ctx); err != nil {
		logrus.WithError(err).Fatal("app run")
	}
}

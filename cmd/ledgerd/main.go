package main

import (
	"flag"
	"net/http"

	"github.com/sirupsen/logrus"

	"chainmail/internal/ledger"
)

func main() {
	listen := flag.String("listen", ":8545", "HTTP listen address")
	db := flag.String("db", "chain.db", "chain database file")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	dev, err := ledger.OpenDev(ledger.DevConfig{Path: *db})
	if err != nil {
		logrus.WithError(err).Fatal("open chain database")
	}
	defer dev.Close()

	// Clients in gateway mode pin these addresses in their config.
	contracts := dev.Contracts()
	logrus.WithFields(logrus.Fields{
		"postbox":   contracts.Postbox,
		"registry":  contracts.Registry,
		"directory": contracts.Directory,
	}).Info("contracts available")

	logrus.WithField("listen", *listen).Info("ledgerd listening")
	if err := http.ListenAndServe(*listen, ledger.NewHandler(dev)); err != nil {
		logrus.WithError(err).Fatal("serve")
	}
}

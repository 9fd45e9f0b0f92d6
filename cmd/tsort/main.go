package main

import (
	"fmt"
	"os"

	"github.com/baserock/morph"
	"github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: tsort <morphology-dir>")
		os.Exit(1)
	}
	dir := os.Args[1]

	log := logrus.New()

	pool, err := morph.LoadMorphologyPool(dir)
	if err != nil {
		log.WithError(err).Fatal("loading morphology pool")
	}
	log.WithField("sources", pool.Len()).Info("loaded source pool")

	_, artifacts, err := morph.ResolveArtifacts(pool, morph.DefaultCacheKeyComputer{})
	if err != nil {
		log.WithError(err).Fatal("resolving artifacts")
	}

	for _, a := range artifacts {
		fmt.Printf("%s\t%s\n", a.Name, a.CacheKey)
	}
}

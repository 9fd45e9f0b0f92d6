package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/baserock/morph"
	"github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "usage: partplan <partition-doc.yaml> <disk-size-bytes> <sector-size-bytes>")
		os.Exit(1)
	}

	log := logrus.New()

	dt, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.WithError(err).Fatal("reading partition document")
	}
	diskSize, err := strconv.ParseUint(os.Args[2], 10, 64)
	if err != nil {
		log.WithError(err).Fatal("parsing disk size")
	}
	sectorSize, err := strconv.ParseUint(os.Args[3], 10, 64)
	if err != nil {
		log.WithError(err).Fatal("parsing sector size")
	}

	doc, err := morph.LoadPartitionDocument(dt, false)
	if err != nil {
		log.WithError(err).Fatal("parsing partition document")
	}

	plan, err := morph.Plan(doc, diskSize, sectorSize)
	if err != nil {
		log.WithError(err).Fatal("resolving partition plan")
	}
	for _, w := range plan.Warnings {
		log.Warn(w)
	}

	for _, p := range plan.Partitions {
		fmt.Printf("%d\t%s\tstart=%d\tend=%d\tsize=%d\tboot=%v\tformat=%s\n",
			p.Number, p.Mountpoint, p.StartSector, p.EndSector, p.SizeSectors, p.Bootable, p.Format)
	}
}

package stages

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/omniscale/osmpipe"
	"github.com/omniscale/osmpipe/log"
	"github.com/omniscale/osmpipe/parser/osc"
	"github.com/omniscale/osmpipe/parser/osmxml"
	"github.com/omniscale/osmpipe/parser/pbf"
	"github.com/omniscale/osmpipe/pipeline"
	"github.com/omniscale/osmpipe/writer"
)

// ReadXML returns a source for the OSM XML file filename. The file is opened
// when the pipeline runs.
func ReadXML(filename string) pipeline.Source {
	return pipeline.SourceFunc(func() (pipeline.Stream, error) {
		return osmxml.Open(filename)
	})
}

func ReadPBF(filename string) pipeline.Source {
	return pipeline.SourceFunc(func() (pipeline.Stream, error) {
		return pbf.Open(filename)
	})
}

func ReadOSC(filename string) pipeline.Source {
	return pipeline.SourceFunc(func() (pipeline.Stream, error) {
		return osc.Open(filename)
	})
}

// WriteXML returns a sink that writes all elements into the OSM XML file
// filename. The file is removed if the input fails.
func WriteXML(filename string) pipeline.Sink {
	return pipeline.SinkFunc(func(in pipeline.Stream) error {
		w, err := writer.CreateXML(filename, "osmpipe "+osmpipe.Version)
		if err != nil {
			return err
		}
		if err := writeAll(w, in); err != nil {
			w.Abort()
			if rerr := os.Remove(filename); rerr != nil {
				log.Printf("[warn] removing incomplete %s: %v", filename, rerr)
			}
			return err
		}
		return errors.Wrapf(w.Close(), "closing %s", filename)
	})
}

func writeAll(w *writer.XMLWriter, in pipeline.Stream) error {
	for {
		e, err := in.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := w.Write(e); err != nil {
			return err
		}
	}
}

func fileStage(newStage func(filename string) pipeline.Stage) func(pipeline.Args) (pipeline.Stage, error) {
	return func(args pipeline.Args) (pipeline.Stage, error) {
		params, err := args.Bind("filename")
		if err != nil {
			return pipeline.Stage{}, err
		}
		filename, err := params.Require("filename")
		if err != nil {
			return pipeline.Stage{}, err
		}
		return newStage(filename), nil
	}
}

func init() {
	pipeline.Register(pipeline.Registration{
		Name:  "read-xml",
		Usage: "filename",
		Help:  "read OSM XML (.osm, .osm.bz2, .osm.gz, .osm.zst)",
		New: fileStage(func(filename string) pipeline.Stage {
			return pipeline.NewSource("", ReadXML(filename))
		}),
	})
	pipeline.Register(pipeline.Registration{
		Name:  "read-pbf",
		Usage: "filename",
		Help:  "read OSM PBF",
		New: fileStage(func(filename string) pipeline.Stage {
			return pipeline.NewSource("", ReadPBF(filename))
		}),
	})
	pipeline.Register(pipeline.Registration{
		Name:  "read-osc",
		Usage: "filename",
		Help:  "read created and modified elements of an OSM change file (.osc, .osc.gz)",
		New: fileStage(func(filename string) pipeline.Stage {
			return pipeline.NewSource("", ReadOSC(filename))
		}),
	})
	pipeline.Register(pipeline.Registration{
		Name:  "write-xml",
		Usage: "filename",
		Help:  "write OSM XML (.osm, .osm.bz2, .osm.gz, .osm.zst)",
		New: fileStage(func(filename string) pipeline.Stage {
			return pipeline.NewSink("", WriteXML(filename))
		}),
	})
}

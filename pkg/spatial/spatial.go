// Package spatial wires the spatial functions and the analyzer rule into
// an engine session.
package spatial

import (
	"arrow-spatial/pkg/engine"
	"arrow-spatial/pkg/rules"
	"arrow-spatial/pkg/udaf"
	"arrow-spatial/pkg/udf"
)

// Register adds ST_AsText, ST_GeometryType, ST_Envelope and ST_Extent to
// s, with their lower-case aliases, and installs the spatial analyzer
// rule.
func Register(s *engine.Session) error {
	for _, f := range []engine.ScalarUDF{udf.NewAsText(), udf.NewGeometryType(), udf.NewEnvelope()} {
		if err := s.RegisterUDF(f); err != nil {
			return err
		}
	}
	if err := s.RegisterUDAF(udaf.NewExtent()); err != nil {
		return err
	}
	s.AddAnalyzerRule(rules.NewSpatialAnalyzerRule())
	return nil
}

// NewSession returns a session with the spatial functions registered.
func NewSession(opts ...engine.Option) (*engine.Session, error) {
	s := engine.NewSession(opts...)
	if err := Register(s); err != nil {
		return nil, err
	}
	return s, nil
}

package subd

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DiagnosticKind classifies problems found during conversion.
type DiagnosticKind int

const (
	// MalformedInput: polygon groups that cannot form a patch, failed lookups.
	MalformedInput DiagnosticKind = iota
	// NonManifold: a position touches more than two boundary edges.
	NonManifold
	// SweepFault: a corner sweep hit a dead end or ran past the hop limit.
	SweepFault
	// CapacityOverflow: a patch collected more neighbors than it can hold.
	CapacityOverflow
	// StructuralFault: a valence-two quad without a partner to merge with.
	StructuralFault
	// ValenceTwo: a quad corner with valence two, queued for repair.
	ValenceTwo
)

// String returns a human-readable kind name.
func (k DiagnosticKind) String() string {
	switch k {
	case MalformedInput:
		return "MalformedInput"
	case NonManifold:
		return "NonManifold"
	case SweepFault:
		return "SweepFault"
	case CapacityOverflow:
		return "CapacityOverflow"
	case StructuralFault:
		return "StructuralFault"
	case ValenceTwo:
		return "ValenceTwo"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Level returns the log level diagnostics of this kind are reported at.
func (k DiagnosticKind) Level() zapcore.Level {
	switch k {
	case NonManifold, CapacityOverflow, ValenceTwo:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// Diagnostic is one recorded conversion problem.
type Diagnostic struct {
	Kind    DiagnosticKind
	Message string
}

// String formats the diagnostic as "Kind: message".
func (d Diagnostic) String() string {
	return d.Kind.String() + ": " + d.Message
}

// Options controls a conversion.
type Options struct {
	// FlipWinding reverses the corner order of synthesized boundary quads,
	// for meshes authored with clockwise front faces.
	FlipWinding bool
	// Logger receives diagnostics. Nil discards them.
	Logger *zap.Logger
}

// report logs a diagnostic and records it on the output.
func (c *converter) report(kind DiagnosticKind, msg string, fields ...zap.Field) {
	c.diagnostics = append(c.diagnostics, Diagnostic{Kind: kind, Message: msg})
	if ce := c.log.Check(kind.Level(), msg); ce != nil {
		ce.Write(append(fields, zap.Stringer("kind", kind))...)
	}
}

// CountDiagnostics returns how many diagnostics of the given kind were recorded.
func (pm *PatchMesh) CountDiagnostics(kind DiagnosticKind) int {
	n := 0
	for _, d := range pm.Diagnostics {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// HasErrors reports whether any error-level diagnostic was recorded.
func (pm *PatchMesh) HasErrors() bool {
	for _, d := range pm.Diagnostics {
		if d.Kind.Level() >= zapcore.ErrorLevel {
			return true
		}
	}
	return false
}

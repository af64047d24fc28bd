// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package infogan

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
)

// posteriorHeads maps the encoder top's feature output to merged posterior
// parameters, one per meaningful distribution. Each parameter gets its own
// dense projection followed by its declared activation, so that e.g. a
// Gaussian's mean stays unconstrained while its standard deviation goes
// through a softplus. Variables live under posteriors/<dist>/<param> in the
// model context, which places them in the encoder's weight group for the
// freezing policy (the "posteriors" scope is frozen and unfrozen together with
// the encoder top).
//
// Multi-parameter outputs are concatenated in ParamInfo order; a
// single-parameter distribution's output is returned as-is, without a
// concatenate node.
func posteriorHeads(ctx *context.Context, features *Node, dists []NamedDist) map[string]*Node {
	ctx = ctx.In(scopePosteriors)
	out := make(map[string]*Node, len(dists))
	for _, nd := range dists {
		distCtx := ctx.In(nd.Name)
		var parts []*Node
		for _, spec := range nd.Dist.ParamInfo() {
			head := layers.Dense(distCtx.In(spec.Name), features, true, spec.Dim)
			parts = append(parts, spec.Activation.Apply(head))
		}
		if len(parts) == 1 {
			out[nd.Name] = parts[0]
		} else {
			out[nd.Name] = Concatenate(parts, -1)
		}
	}
	return out
}

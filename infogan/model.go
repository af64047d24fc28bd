// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package infogan

import (
	"strings"

	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/checkpoints"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/pkg/errors"
)

// Default optimizer hyperparameters. The asymmetric learning rates (slow
// discriminator, fast generator) and the low beta1 are a deliberate choice for
// GAN stability.
const (
	DiscriminatorLearningRate = 2e-4
	GeneratorLearningRate     = 1e-3
	AdamBeta1                 = 0.2
	AdamBeta2                 = 0.999
)

// Optimizer state scopes, kept separate per training graph so that the two
// optimizers never share moments, learning rates or step counters.
const (
	scopeDiscOptimizer = "adam_disc"
	scopeGenOptimizer  = "adam_gen"
	scopeDiscTrain     = "train_disc"
	scopeGenTrain      = "train_gen"
)

// InfoGAN assembles the four networks and the latent distributions into five
// lazily compiled graphs sharing one variable context: three standalone
// inference graphs (generate, encode, discriminate) and two training graphs
// (discriminator step, generator step).
//
// An InfoGAN is not safe for concurrent use: training steps mutate the shared
// weight variables in place and must be serialized by the caller.
type InfoGAN struct {
	backend   backends.Backend
	ctx       *context.Context
	config    *Config
	dtype     dtypes.DType
	batchSize int

	prior     PriorParams
	priorSpec []priorEntry

	genExec       *context.Exec
	encExec       *context.Exec
	discExec      *context.Exec
	trainDiscExec *context.Exec
	trainGenExec  *context.Exec

	discOptimizer optimizers.Interface
	genOptimizer  optimizers.Interface

	discLossNames []string
	genLossNames  []string

	checkpoint *checkpoints.Handler
}

// New assembles an InfoGAN from the configuration. It panics on invalid
// configurations (missing networks or prior parameters, shape mismatches).
// Graphs are compiled lazily on first use; weights are created during the
// first graph build and shared by every graph built afterwards.
func New(backend backends.Backend, ctx *context.Context, cfg Config) *InfoGAN {
	cfg.validate()
	if ctx == nil {
		ctx = context.New()
	}
	m := &InfoGAN{
		backend:   backend,
		ctx:       ctx,
		config:    &cfg,
		dtype:     cfg.dtype(),
		batchSize: cfg.BatchSize,
		prior:     cfg.Prior,
		priorSpec: buildPriorSpec(&cfg),
	}
	m.discOptimizer = optimizers.Adam().
		Scope(scopeDiscOptimizer).
		LearningRate(DiscriminatorLearningRate).
		Betas(AdamBeta1, AdamBeta2).
		Done()
	m.genOptimizer = optimizers.Adam().
		Scope(scopeGenOptimizer).
		LearningRate(GeneratorLearningRate).
		Betas(AdamBeta1, AdamBeta2).
		Done()

	m.genExec = context.MustNewExec(backend, m.ctx,
		func(ctx *context.Context, priorInputs []*Node) *Node {
			generated, _ := m.generatedSample(ctx, priorInputs)
			return generated
		})
	m.encExec = context.MustNewExec(backend, m.ctx,
		func(ctx *context.Context, samples *Node) []*Node {
			posteriors := m.encodePath(ctx, samples)
			outputs := make([]*Node, 0, len(m.config.MeaningfulDists))
			for _, nd := range m.config.MeaningfulDists {
				outputs = append(outputs, posteriors[nd.Name])
			}
			return outputs
		})
	m.discExec = context.MustNewExec(backend, m.ctx,
		func(ctx *context.Context, samples *Node) *Node {
			return m.discriminatePath(ctx, samples)
		})
	m.trainDiscExec = context.MustNewExec(backend, m.ctx, m.discTrainGraph)
	m.trainGenExec = context.MustNewExec(backend, m.ctx, m.genTrainGraph)

	m.discLossNames = []string{"d_generated", "d_real"}
	for _, nd := range cfg.MeaningfulDists {
		m.discLossNames = append(m.discLossNames, "d_mi_"+nd.Name)
	}
	if cfg.SupervisedDistName != "" {
		m.discLossNames = append(m.discLossNames, "d_supervised")
	}
	m.genLossNames = []string{"g_adversarial"}
	for _, nd := range cfg.MeaningfulDists {
		m.genLossNames = append(m.genLossNames, "g_mi_"+nd.Name)
	}
	return m
}

// Context returns the variable context holding all weights and optimizer
// state.
func (m *InfoGAN) Context() *context.Context { return m.ctx }

// BatchSize returns the configured training batch size.
func (m *InfoGAN) BatchSize() int { return m.batchSize }

// generatedSample samples all latents from the positional prior inputs, runs
// the generator and samples the output (image) distribution from the
// generator's activated output.
func (m *InfoGAN) generatedSample(ctx *context.Context, priorInputs []*Node) (*Node, *latentSamples) {
	ls := m.sampleLatents(ctx, priorInputs)
	genOut := m.config.Generator.Apply(ctx.In(m.config.Generator.Name), ls.vector)
	spec := m.config.ImageDist.ParamInfo()[0]
	params := map[string]*Node{spec.Name: spec.Activation.Apply(genOut)}
	return m.config.ImageDist.Sample(ctx, params), ls
}

// trunkFeatures runs a sample batch through the shared trunk.
func (m *InfoGAN) trunkFeatures(ctx *context.Context, samples *Node) *Node {
	return m.config.SharedTrunk.Apply(ctx.In(m.config.SharedTrunk.Name), samples)
}

// discriminatePath maps samples to the discriminator's probability that they
// are real, shaped [batch, 1].
func (m *InfoGAN) discriminatePath(ctx *context.Context, samples *Node) *Node {
	features := m.trunkFeatures(ctx, samples)
	return m.config.DiscriminatorTop.Apply(ctx.In(m.config.DiscriminatorTop.Name), features)
}

// encodePath maps samples to merged posterior parameters, keyed by meaningful
// distribution name.
func (m *InfoGAN) encodePath(ctx *context.Context, samples *Node) map[string]*Node {
	features := m.trunkFeatures(ctx, samples)
	encoded := m.config.EncoderTop.Apply(ctx.In(m.config.EncoderTop.Name), features)
	return posteriorHeads(ctx, encoded, m.config.MeaningfulDists)
}

// discTrainGraph builds one discriminator training step. Inputs are the real
// sample batch, the supervision labels when configured, then the prior
// parameters in canonical order. Outputs are the individual losses, in
// discLossNames order, as float64 scalars.
//
// The generator runs inside this graph (to produce the generated batch) but
// its weights are frozen here: the freeze pattern is asserted after the
// forward pass creates or reuses every variable, and immediately before the
// optimizer captures the set of trainable variables. Because trainability is
// read at graph build time, the compiled step is immune to later flag flips.
func (m *InfoGAN) discTrainGraph(ctx *context.Context, inputs []*Node) []*Node {
	ctx.SetTraining(inputs[0].Graph(), true)
	realSamples := inputs[0]
	rest := inputs[1:]
	var labels *Node
	if m.config.SupervisedDistName != "" {
		labels = rest[0]
		rest = rest[1:]
	}

	generated, ls := m.generatedSample(ctx, rest)
	probGenerated := m.discriminatePath(ctx, generated)
	probReal := m.discriminatePath(ctx, realSamples)
	genPosteriors := m.encodePath(ctx, generated)

	losses := []*Node{
		discGeneratedLoss(probGenerated),
		discRealLoss(probReal),
	}
	for _, nd := range m.config.MeaningfulDists {
		losses = append(losses, mutualInfoLoss(nd.Dist, ls.meaningful[nd.Name], genPosteriors[nd.Name]))
	}
	if m.config.SupervisedDistName != "" {
		realPosteriors := m.encodePath(ctx, realSamples)
		dist := m.config.findMeaningful(m.config.SupervisedDistName)
		losses = append(losses, supervisedLoss(dist, labels, realPosteriors[m.config.SupervisedDistName]))
	}

	m.applyDiscFreezePattern(ctx)
	m.discOptimizer.UpdateGraph(ctx.In(scopeDiscTrain), losses[0].Graph(), sumLosses(losses))
	return lossesAsFloat64(losses)
}

// genTrainGraph builds one generator training step. Inputs are the prior
// parameters in canonical order; outputs are the individual losses, in
// genLossNames order, as float64 scalars. Only the generator's weights are
// trainable here; the trunk, both heads and the posterior heads are frozen.
func (m *InfoGAN) genTrainGraph(ctx *context.Context, priorInputs []*Node) []*Node {
	ctx.SetTraining(priorInputs[0].Graph(), true)
	generated, ls := m.generatedSample(ctx, priorInputs)
	probGenerated := m.discriminatePath(ctx, generated)
	genPosteriors := m.encodePath(ctx, generated)

	losses := []*Node{generatorAdversarialLoss(probGenerated)}
	for _, nd := range m.config.MeaningfulDists {
		losses = append(losses, mutualInfoLoss(nd.Dist, ls.meaningful[nd.Name], genPosteriors[nd.Name]))
	}

	m.applyGenFreezePattern(ctx)
	m.genOptimizer.UpdateGraph(ctx.In(scopeGenTrain), losses[0].Graph(), sumLosses(losses))
	return lossesAsFloat64(losses)
}

// Weight groups are context scopes: the four networks' name scopes plus the
// posterior heads' scope, which belongs to the encoder group. Each training
// graph owns a disjoint set of groups, asserted right before its optimizer
// update is built.

func (m *InfoGAN) discGroupScopes() []string {
	return []string{
		m.config.SharedTrunk.Name,
		m.config.DiscriminatorTop.Name,
		m.config.EncoderTop.Name,
		scopePosteriors,
	}
}

// applyDiscFreezePattern marks the discriminator-side groups trainable and
// the generator frozen.
func (m *InfoGAN) applyDiscFreezePattern(ctx *context.Context) {
	m.setGroupTrainable(ctx, m.config.Generator.Name, false)
	for _, scope := range m.discGroupScopes() {
		m.setGroupTrainable(ctx, scope, true)
	}
}

// applyGenFreezePattern marks the generator trainable and everything else
// frozen.
func (m *InfoGAN) applyGenFreezePattern(ctx *context.Context) {
	m.setGroupTrainable(ctx, m.config.Generator.Name, true)
	for _, scope := range m.discGroupScopes() {
		m.setGroupTrainable(ctx, scope, false)
	}
}

func (m *InfoGAN) setGroupTrainable(ctx *context.Context, scope string, trainable bool) {
	ctx.InAbsPath(context.RootScope + scope).EnumerateVariablesInScope(
		func(v *context.Variable) {
			v.SetTrainable(trainable)
		})
}

// sumLosses adds the individual losses into the scalar the optimizer
// minimizes.
func sumLosses(losses []*Node) *Node {
	total := losses[0]
	for _, loss := range losses[1:] {
		total = Add(total, loss)
	}
	return total
}

// lossesAsFloat64 converts loss nodes to float64 so callers get losses in one
// type regardless of the model dtype.
func lossesAsFloat64(losses []*Node) []*Node {
	outputs := make([]*Node, len(losses))
	for i, loss := range losses {
		outputs[i] = ConvertDType(loss, dtypes.Float64)
	}
	return outputs
}

// loadGroup copies every variable of a loaded checkpoint context whose scope
// falls under one of the given group scopes into the model context, creating
// the variable when the model hasn't built its graphs yet.
func (m *InfoGAN) loadGroup(from *context.Context, groupScopes []string) {
	prefixes := make([]string, len(groupScopes))
	for i, scope := range groupScopes {
		prefixes[i] = context.RootScope + scope
	}
	from.EnumerateVariables(func(v *context.Variable) {
		scope := v.Scope()
		matched := false
		for _, prefix := range prefixes {
			if scope == prefix || strings.HasPrefix(scope, prefix+context.ScopeSeparator) {
				matched = true
				break
			}
		}
		if !matched {
			return
		}
		value := v.MustValue()
		if target := m.ctx.GetVariableByScopeAndName(scope, v.Name()); target != nil {
			target.MustSetValue(value)
			return
		}
		m.ctx.Checked(false).InAbsPath(scope).VariableWithValue(v.Name(), value)
	})
}

// LoadWeights loads pre-trained weights from two checkpoint directories: the
// generator group from genDir, and the shared trunk, discriminator head,
// encoder head and posterior heads from discDir. Either directory may be
// empty to skip that group. Optimizer state is not restored; use
// AttachCheckpoint for full training resumption.
func (m *InfoGAN) LoadWeights(genDir, discDir string) error {
	load := func(dir string, groups []string) error {
		scratch := context.New()
		_, err := checkpoints.Build(scratch).Dir(dir).Immediate().Done()
		if err != nil {
			return errors.WithMessagef(err, "loading checkpoint from %q", dir)
		}
		m.loadGroup(scratch, groups)
		return nil
	}
	if genDir != "" {
		if err := load(genDir, []string{m.config.Generator.Name}); err != nil {
			return err
		}
	}
	if discDir != "" {
		if err := load(discDir, m.discGroupScopes()); err != nil {
			return err
		}
	}
	return nil
}

// AttachCheckpoint attaches a checkpoint handler saving the full model state
// (weights, optimizer moments, step counters) under dir, keeping the given
// number of checkpoints. If dir already holds a checkpoint it is loaded
// immediately. Call Save to write a new checkpoint.
func (m *InfoGAN) AttachCheckpoint(dir string, keep int) error {
	handler, err := checkpoints.Build(m.ctx).Dir(dir).Keep(keep).Immediate().Done()
	if err != nil {
		return errors.WithMessagef(err, "attaching checkpoint at %q", dir)
	}
	m.checkpoint = handler
	return nil
}

// Save writes a checkpoint. AttachCheckpoint must have been called.
func (m *InfoGAN) Save() error {
	if m.checkpoint == nil {
		return errors.New("no checkpoint attached, call AttachCheckpoint first")
	}
	return m.checkpoint.Save()
}

package choice

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/rsm-haz047/choicemodel/statmodel"
)

// probFloor is added to choice probabilities before taking logs, so that
// a probability that underflows to zero does not produce -Inf.
const probFloor = 1e-12

// MNLParameter contains a parameter value for a multinomial logit model.
type MNLParameter struct {
	coeff []float64
}

// NewMNLParameter wraps coeff (not copied) as a model parameter.
func NewMNLParameter(coeff []float64) *MNLParameter {
	return &MNLParameter{coeff}
}

// GetCoeff returns the array of model coefficients from a parameter value.
func (p *MNLParameter) GetCoeff() []float64 {
	return p.coeff
}

// SetCoeff sets the array of model coefficients for a parameter value.
func (p *MNLParameter) SetCoeff(x []float64) {
	p.coeff = x
}

// Clone returns a deep copy of the parameter value.
func (p *MNLParameter) Clone() statmodel.Parameter {
	q := make([]float64, len(p.coeff))
	copy(q, p.coeff)
	return &MNLParameter{q}
}

// MNLogit describes a multinomial (conditional) logit model for grouped
// choice data.  The choice probability of alternative j in a task is
// exp(x_j'b) / sum_k exp(x_k'b), the sum running over the alternatives
// of the same task.
type MNLogit struct {

	// The data to which the model is fit
	data *ChoiceData

	// Starting values, optional
	start []float64

	// L2 (ridge) weights for each variable
	l2wgtMap map[string]float64
	l2wgt    []float64

	// Optimization settings
	optsettings *optimize.Settings

	// Optimization method, a fresh default is used per fit if nil
	optmethod optimize.Method

	gradtol float64
	maxiter int
	numgrad bool

	// Condition number above which the covariance is flagged
	condmax float64

	// Covariate scale factors, the optimizer works with x/xn
	xn []float64

	log *log.Logger

	// Scratch space of length NumObs
	nslices sync.Pool
}

// MNLogitConfig defines configuration parameters for a multinomial logit model.
type MNLogitConfig struct {

	// A logger to which logging information is written
	Log *log.Logger

	// Start contains starting values for the coefficients, the zero
	// vector is used if nil.
	Start []float64

	// L2Penalty maps covariate names to ridge weights w, the
	// objective becomes loglike - sum w*b^2.
	L2Penalty map[string]float64

	// GradTol is the convergence threshold for the infinity norm of
	// the gradient of the mean negative log-likelihood per task,
	// computed with covariates scaled to unit root mean square deviation
	// within tasks.
	GradTol float64

	// MaxIter bounds the number of major optimizer iterations, zero
	// means no bound.  Ignored if OptSettings is provided.
	MaxIter int

	// NumericGrad replaces the analytic score by central finite
	// differences of the log-likelihood.
	NumericGrad bool

	// CondThreshold is the Hessian condition number above which the
	// covariance estimate is reported as unreliable.
	CondThreshold float64

	// OptMethod is the Gonum optimization used to fit the model.
	// Methods carry state, so do not share one value between fits
	// that run concurrently.
	OptMethod optimize.Method

	// OptSettings configures the Gonum optimization routine.
	OptSettings *optimize.Settings
}

// DefaultMNLogitConfig returns a default configuration struct for a
// multinomial logit model.
func DefaultMNLogitConfig() *MNLogitConfig {
	return &MNLogitConfig{
		GradTol:       1e-6,
		CondThreshold: 1e12,
	}
}

// NewMNLogit returns a MNLogit value that can be used to evaluate the
// likelihood of, and fit, a multinomial logit model to the given data.
func NewMNLogit(data *ChoiceData, config *MNLogitConfig) (*MNLogit, error) {

	if config == nil {
		config = DefaultMNLogitConfig()
	}

	p := data.NumCovariates()

	if config.Start != nil && len(config.Start) != p {
		return nil, fmt.Errorf("mnlogit: %d starting values for %d covariates", len(config.Start), p)
	}

	var l2wgt []float64
	if len(config.L2Penalty) > 0 {
		pos := make(map[string]int)
		for j, na := range data.Names() {
			pos[na] = j
		}
		l2wgt = make([]float64, p)
		for na, w := range config.L2Penalty {
			j, ok := pos[na]
			if !ok {
				return nil, fmt.Errorf("mnlogit: L2 penalty for unknown covariate '%s'", na)
			}
			if w < 0 || math.IsNaN(w) {
				return nil, fmt.Errorf("mnlogit: L2 penalty for '%s' must be non-negative", na)
			}
			l2wgt[j] = w
		}
	}

	gradtol := config.GradTol
	if gradtol <= 0 {
		gradtol = 1e-6
	}

	condmax := config.CondThreshold
	if condmax <= 0 {
		condmax = 1e12
	}

	m := &MNLogit{
		data:        data,
		start:       config.Start,
		l2wgtMap:    config.L2Penalty,
		l2wgt:       l2wgt,
		optsettings: config.OptSettings,
		optmethod:   config.OptMethod,
		gradtol:     gradtol,
		maxiter:     config.MaxIter,
		numgrad:     config.NumericGrad,
		condmax:     condmax,
		log:         config.Log,
	}

	m.doScale()

	n := data.NumObs()
	m.nslices.New = func() interface{} {
		return make([]float64, n)
	}

	return m, nil
}

// doScale calculates covariate scaling factors, the root mean square
// deviation of each covariate from its task mean.  Only variation within
// a task enters the likelihood.  Covariates with no such variation get
// the factor 1.
func (m *MNLogit) doScale() {

	p := m.NumParams()
	m.xn = make([]float64, p)

	for j := 0; j < p; j++ {
		x := m.data.X(j)
		var ss float64
		for _, ix := range m.data.taskix {
			u := x[ix[0]:ix[1]]
			mn := floats.Sum(u) / float64(len(u))
			for _, v := range u {
				ss += (v - mn) * (v - mn)
			}
		}

		if ss == 0 {
			m.xn[j] = 1
			continue
		}
		m.xn[j] = math.Sqrt(ss / float64(m.NumObs()))
	}
}

// unscale maps scaled coefficients back to the covariate scale.
func (m *MNLogit) unscale(x []float64) []float64 {
	b := make([]float64, len(x))
	for j := range x {
		b[j] = x[j] / m.xn[j]
	}
	return b
}

// Penalized returns a copy of the model using the given L2 weights in
// place of its own.  The optimization method is not copied.
func (m *MNLogit) Penalized(l2wgt map[string]float64) (*MNLogit, error) {
	config := &MNLogitConfig{
		Log:           m.log,
		Start:         m.start,
		L2Penalty:     l2wgt,
		GradTol:       m.gradtol,
		MaxIter:       m.maxiter,
		NumericGrad:   m.numgrad,
		CondThreshold: m.condmax,
		OptSettings:   m.optsettings,
	}
	return NewMNLogit(m.data, config)
}

// NewParameter returns coeff as a parameter value of the model.
func (m *MNLogit) NewParameter(coeff []float64) statmodel.Parameter {
	return &MNLParameter{coeff}
}

// L2Weights returns the ridge weight of each coefficient, or nil if the
// model is not penalized.
func (m *MNLogit) L2Weights() []float64 {
	if m.l2wgt == nil {
		return nil
	}
	return append([]float64(nil), m.l2wgt...)
}

// Data returns the choice data used by the model.
func (m *MNLogit) Data() *ChoiceData {
	return m.data
}

// Names returns the covariate names, in coefficient order.
func (m *MNLogit) Names() []string {
	return m.data.Names()
}

// NumObs returns the number of alternative records in the data set.
func (m *MNLogit) NumObs() int {
	return m.data.NumObs()
}

// NumParams returns the number of model parameters (regression coefficients).
func (m *MNLogit) NumParams() int {
	return m.data.NumCovariates()
}

// Dataset returns the data columns that are used to fit the model.
func (m *MNLogit) Dataset() [][]statmodel.Dtype {
	return m.data.Columns()
}

// Xpos return the positions of the covariates in Dataset.
func (m *MNLogit) Xpos() []int {
	return m.data.Xpos()
}

func (m *MNLogit) getNslice() []float64 {
	return m.nslices.Get().([]float64)
}

func (m *MNLogit) putNslice(x []float64) {
	m.nslices.Put(x)
}

// linpred writes the utilities x_i'b of every row into lp.
func (m *MNLogit) linpred(coeff, lp []float64) {

	if len(coeff) != m.NumParams() {
		msg := fmt.Sprintf("mnlogit: %d coefficients for %d covariates\n", len(coeff), m.NumParams())
		panic(msg)
	}

	zero(lp)
	for j := range coeff {
		floats.AddScaled(lp, coeff[j], m.data.X(j))
	}
}

// LogLike returns the log-likelihood at the given parameter value.  If
// exact is false, the chosen probability is floored before taking its
// log, otherwise the log-softmax is evaluated directly.
func (m *MNLogit) LogLike(param statmodel.Parameter, exact bool) float64 {

	coeff := param.GetCoeff()

	ll := m.groupedLogLike(coeff, exact)

	// Account for L2 weights if present.
	if len(m.l2wgt) > 0 {
		for j, x := range coeff {
			ll -= m.l2wgt[j] * x * x
		}
	}

	return ll
}

// groupedLogLike returns sum_t log P(chosen alternative of task t).
func (m *MNLogit) groupedLogLike(coeff []float64, exact bool) float64 {

	lp := m.getNslice()
	defer m.putNslice(lp)
	m.linpred(coeff, lp)

	var ll float64
	for t, ix := range m.data.taskix {

		// Softmax is invariant to adding a constant within a task.
		mx := floats.Max(lp[ix[0]:ix[1]])
		uc := lp[m.data.chosen[t]] - mx

		var den float64
		for i := ix[0]; i < ix[1]; i++ {
			den += math.Exp(lp[i] - mx)
		}

		if exact {
			ll += uc - math.Log(den)
		} else {
			ll += math.Log(math.Exp(uc)/den + probFloor)
		}
	}

	return ll
}

// Probs returns the choice probability of every row at the given
// coefficients.  Within each task the probabilities sum to one.
func (m *MNLogit) Probs(coeff []float64) []float64 {

	pr := make([]float64, m.NumObs())
	m.linpred(coeff, pr)
	m.softmax(pr)

	return pr
}

// softmax replaces the utilities in lp by probabilities, task by task.
func (m *MNLogit) softmax(lp []float64) {
	for _, ix := range m.data.taskix {
		u := lp[ix[0]:ix[1]]
		mx := floats.Max(u)
		for i := range u {
			u[i] = math.Exp(u[i] - mx)
		}
		floats.Scale(1/floats.Sum(u), u)
	}
}

// NullLogLike returns the log-likelihood with all coefficients equal to
// zero, where every alternative of a task is equally likely.
func (m *MNLogit) NullLogLike() float64 {
	var ll float64
	for _, ix := range m.data.taskix {
		ll -= math.Log(float64(ix[1] - ix[0]))
	}
	return ll
}

func zero(x []float64) {
	for i := range x {
		x[i] = 0
	}
}

func negative(x []float64) {
	for i := 0; i < len(x); i++ {
		x[i] *= -1
	}
}

// Score computes the score vector (gradient of the log-likelihood) at
// the given parameter setting.
func (m *MNLogit) Score(param statmodel.Parameter, score []float64) {

	coeff := param.GetCoeff()

	zero(score)

	pr := m.getNslice()
	defer m.putNslice(pr)
	m.linpred(coeff, pr)
	m.softmax(pr)

	// sum_t x_chosen - sum_i p_i x_i
	for j := range coeff {
		x := m.data.X(j)
		for _, c := range m.data.chosen {
			score[j] += x[c]
		}
		score[j] -= floats.Dot(pr, x)
	}

	// Account for L2 weights if present.
	if len(m.l2wgt) > 0 {
		for j, x := range coeff {
			score[j] -= 2 * m.l2wgt[j] * x
		}
	}
}

// Hessian computes the Hessian matrix of the log-likelihood at the
// given parameter setting.  The observed and expected Hessians are
// equal for this model, so the Hessian type is not used.
func (m *MNLogit) Hessian(param statmodel.Parameter, ht statmodel.HessType, hess []float64) {

	coeff := param.GetCoeff()
	p := len(coeff)

	zero(hess)

	pr := m.getNslice()
	defer m.putNslice(pr)
	m.linpred(coeff, pr)
	m.softmax(pr)

	xbar := make([]float64, p)
	for _, ix := range m.data.taskix {

		// Probability weighted mean of the covariates in the task
		for j := 0; j < p; j++ {
			x := m.data.X(j)
			xbar[j] = floats.Dot(pr[ix[0]:ix[1]], x[ix[0]:ix[1]])
		}

		// -sum_i p_i (x_i - xbar)(x_i - xbar)'
		for i := ix[0]; i < ix[1]; i++ {
			for j1 := 0; j1 < p; j1++ {
				d1 := m.data.X(j1)[i] - xbar[j1]
				for j2 := 0; j2 <= j1; j2++ {
					d2 := m.data.X(j2)[i] - xbar[j2]
					u := pr[i] * d1 * d2
					hess[j1*p+j2] -= u
					if j2 != j1 {
						hess[j2*p+j1] -= u
					}
				}
			}
		}
	}

	// Account for L2 weights if present.
	if len(m.l2wgt) > 0 {
		for j := 0; j < p; j++ {
			hess[j*p+j] -= 2 * m.l2wgt[j]
		}
	}
}

// NonConvergenceError is returned by Fit when the optimizer stops
// before reaching a minimum.  It carries the last iterate.
type NonConvergenceError struct {

	// Status is the optimizer termination status
	Status optimize.Status

	// Iterations is the number of major iterations performed
	Iterations int

	// X is the last iterate and LogLike the log-likelihood there
	X       []float64
	LogLike float64

	Err error
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("mnlogit: optimizer did not converge after %d iterations (status %v): %v",
		e.Iterations, e.Status, e.Err)
}

func (e *NonConvergenceError) Unwrap() error {
	return e.Err
}

// failMessage logs information that can help diagnose optimization failures.
func (m *MNLogit) failMessage(optrslt *optimize.Result) {

	if m.log == nil {
		return
	}

	names := m.data.Names()

	m.log.Printf("Optimization failed with status %v after %d iterations", optrslt.Status, optrslt.MajorIterations)
	m.log.Printf("Current point and scaled gradient:")
	for j, x := range optrslt.X {
		g := math.NaN()
		if optrslt.Gradient != nil {
			g = optrslt.Gradient[j]
		}
		m.log.Printf("%16.8f %16.8f %s", x/m.xn[j], g, names[j])
	}

	m.log.Printf("Covariate means and standard deviations:")
	for j := range names {
		mn, sd := stat.MeanStdDev(m.data.X(j), nil)
		m.log.Printf("%16.8f %16.8f %s", mn, sd, names[j])
	}

	// The share of tasks in which each position was chosen
	share := make([]float64, m.data.NumAlt())
	for t, c := range m.data.chosen {
		share[c-m.data.taskix[t][0]]++
	}
	floats.Scale(1/float64(m.data.NumTasks()), share)
	m.log.Printf("Tasks: %d, chosen share by position: %v", m.data.NumTasks(), share)
}

func (m *MNLogit) method() optimize.Method {
	if m.optmethod != nil {
		return m.optmethod
	}
	return &optimize.BFGS{
		Linesearcher: &optimize.MoreThuente{},
	}
}

// Fit fits the model to the data by maximum likelihood.  If the
// optimizer stops early the partial results are returned together with
// a *NonConvergenceError.
//
// The optimizer minimizes the mean negative log-likelihood per task
// over scaled coefficients.  The objective is the exact log-softmax,
// which the analytic score differentiates.  It differs from the floored
// LogLike only where a chosen probability is below 1e-12.
func (m *MNLogit) Fit() (*MNLogitResults, error) {

	nvar := m.NumParams()

	start := make([]float64, nvar)
	if m.start != nil {
		for j := range start {
			start[j] = m.start[j] * m.xn[j]
		}
	}

	p := optimize.Problem{
		Func: m.scaledObjective,
		Grad: m.scaledGrad,
	}

	settings := m.optsettings
	if settings == nil {
		settings = &optimize.Settings{
			GradientThreshold: m.gradtol,
			MajorIterations:   m.maxiter,
		}
	}

	xna := m.data.Names()

	if m.log != nil {
		m.log.Printf("Fitting multinomial logit to %d tasks, %d covariates", m.data.NumTasks(), nvar)
	}

	optrslt, err := optimize.Minimize(p, start, settings, m.method())
	if optrslt == nil {
		return nil, err
	}
	if err == nil {
		err = optrslt.Status.Err()
	}

	// Near the optimum, changes in the objective are lost to roundoff
	// and the line search can fail.  Newton steps driven by the
	// gradient finish the fit.  Iteration, time and evaluation limits
	// are honored.
	x := optrslt.X
	status := optrslt.Status
	if err != nil && !isLimit(status) {
		if xnew, ok := m.newton(x); ok {
			if m.log != nil {
				m.log.Printf("Optimizer stopped with status %v (%v), finished with Newton steps", status, err)
			}
			x = xnew
			err = nil
			status = optimize.Success
		}
	}

	param := m.unscale(x)
	ll := m.LogLike(&MNLParameter{param}, false)

	if err != nil {
		// Return a partial results with an error
		results := &MNLogitResults{
			BaseResults: statmodel.NewBaseResults(m, ll, param, xna, nil),
			status:      status,
			iterations:  optrslt.MajorIterations,
			nullLL:      m.NullLogLike(),
			converged:   false,
		}
		m.failMessage(optrslt)
		return results, &NonConvergenceError{
			Status:     status,
			Iterations: optrslt.MajorIterations,
			X:          param,
			LogLike:    ll,
			Err:        err,
		}
	}

	var warnings []string
	vcov, cond, verr := statmodel.GetVcov(m, &MNLParameter{param})
	switch {
	case verr != nil:
		warnings = append(warnings, fmt.Sprintf("Hessian is singular, standard errors are unavailable (%v)", verr))
	case cond > m.condmax:
		warnings = append(warnings, fmt.Sprintf("Hessian is ill-conditioned (condition number %.3g), standard errors may be unreliable", cond))
	}
	for j := range vcov {
		if j%(nvar+1) == 0 && !(vcov[j] > 0) {
			warnings = append(warnings, fmt.Sprintf("non-positive variance estimate for '%s'", xna[j/(nvar+1)]))
		}
	}

	if m.log != nil {
		m.log.Printf("Converged with status %v after %d iterations, log-likelihood %.6f",
			status, optrslt.MajorIterations, ll)
		for _, w := range warnings {
			m.log.Print(w)
		}
	}

	results := &MNLogitResults{
		BaseResults: statmodel.NewBaseResults(m, ll, param, xna, vcov),
		status:      status,
		iterations:  optrslt.MajorIterations,
		cond:        cond,
		nullLL:      m.NullLogLike(),
		converged:   true,
		warnings:    warnings,
	}

	return results, nil
}

// scaledObjective returns the mean negative log-likelihood per task at
// the scaled coefficients x.
func (m *MNLogit) scaledObjective(x []float64) float64 {
	return -m.LogLike(&MNLParameter{m.unscale(x)}, true) / float64(m.data.NumTasks())
}

// scaledGrad computes the gradient of scaledObjective.
func (m *MNLogit) scaledGrad(g, x []float64) {

	if m.numgrad {
		fd.Gradient(g, m.scaledObjective, x, &fd.Settings{Formula: fd.Central})
		return
	}

	nt := float64(m.data.NumTasks())
	m.Score(&MNLParameter{m.unscale(x)}, g)
	for j := range g {
		g[j] /= -m.xn[j] * nt
	}
}

func isLimit(s optimize.Status) bool {
	switch s {
	case optimize.IterationLimit, optimize.RuntimeLimit, optimize.FunctionEvaluationLimit,
		optimize.GradientEvaluationLimit, optimize.HessianEvaluationLimit:
		return true
	}
	return false
}

// maxNewton bounds the number of Newton steps taken by newton.
const maxNewton = 50

// newton takes damped Newton steps on the scaled objective from x until
// the infinity norm of the gradient falls below the convergence
// threshold.  A step is halved until it reduces the gradient norm.  The
// returned flag reports convergence.
func (m *MNLogit) newton(x []float64) ([]float64, bool) {

	p := len(x)
	x = append([]float64(nil), x...)
	g := make([]float64, p)
	gt := make([]float64, p)
	xt := make([]float64, p)
	step := make([]float64, p)

	m.scaledGrad(g, x)
	gn := floats.Norm(g, math.Inf(1))

	for iter := 0; iter < maxNewton && !(gn < m.gradtol); iter++ {

		if !m.newtonDir(x, g, step) {
			return x, false
		}

		ok := false
		for t := 1.0; t > 1e-10; t /= 2 {
			floats.AddScaledTo(xt, x, -t, step)
			m.scaledGrad(gt, xt)
			if gtn := floats.Norm(gt, math.Inf(1)); gtn < gn {
				copy(x, xt)
				copy(g, gt)
				gn = gtn
				ok = true
				break
			}
		}
		if !ok {
			return x, false
		}
	}

	return x, gn < m.gradtol
}

// newtonDir solves A step = g, where A is the Hessian of the scaled
// objective at x.  A ridge is added when A is not numerically positive
// definite, as happens with collinear covariates.
func (m *MNLogit) newtonDir(x, g, step []float64) bool {

	p := len(x)
	nt := float64(m.data.NumTasks())
	hess := make([]float64, p*p)
	m.Hessian(&MNLParameter{m.unscale(x)}, statmodel.ObsHess, hess)

	a := mat.NewSymDense(p, nil)
	for j := 0; j < p; j++ {
		for k := 0; k <= j; k++ {
			a.SetSym(j, k, -hess[j*p+k]/(m.xn[j]*m.xn[k]*nt))
		}
	}

	b := mat.NewSymDense(p, nil)
	dst := mat.NewVecDense(p, step)
	rhs := mat.NewVecDense(p, g)
	var chol mat.Cholesky
	for lam := 0.0; lam < 1; {
		b.CopySym(a)
		for j := 0; j < p; j++ {
			b.SetSym(j, j, a.At(j, j)+lam)
		}
		if chol.Factorize(b) && chol.SolveVecTo(dst, rhs) == nil {
			return true
		}
		if lam == 0 {
			lam = 1e-10
		} else {
			lam *= 100
		}
	}

	return false
}

// IsNonConvergence reports whether err reports an optimizer that did not converge.
func IsNonConvergence(err error) bool {
	var nc *NonConvergenceError
	return errors.As(err, &nc)
}

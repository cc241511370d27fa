// Package bayes provides Bayesian inference for the coefficients of a
// choice model: independent normal priors, the resulting log-posterior,
// its mode, and a random-walk Metropolis-Hastings sampler with trace
// summaries.
//
// The posterior evaluates the same log-likelihood as the maximum
// likelihood fit, so the two sets of estimates can be compared
// directly.
package bayes

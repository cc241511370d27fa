// Package choice fits multinomial (conditional) logit models to grouped
// discrete choice data, such as the tasks of a conjoint survey.
//
// Each choice task presents a fixed number of alternatives described by
// a covariate vector, and exactly one alternative is chosen.  The
// probability of choosing alternative j is a softmax of the utilities
// x'b over the alternatives of its task.  ChoiceData validates and
// groups the raw records, and MNLogit evaluates the log-likelihood,
// score and Hessian and fits b by maximum likelihood.
package choice

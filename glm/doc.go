/*
Package glm fits generalized linear models (GLM) to column-major float64
data.

The Gaussian, binomial and gamma families are supported, with identity,
logit and log default links respectively.  Models are fit by iteratively
reweighted least squares, or optionally by gradient optimization using
gonum's optimize package.  Fitting problems are reported as errors rather
than panics so that interactive callers can recover from a bad model.
*/
package glm

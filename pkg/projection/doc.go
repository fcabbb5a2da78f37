/*
Package projection evaluates JMESPath expressions against process context
documents and deep-merges data objects.

Projections are side-effect-free read queries used by triggers and
transition conditions. Patch implements the update semantics of response
update instructions: "patch" deep-merges, "replace" swaps wholesale.
*/
package projection

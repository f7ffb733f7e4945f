package main

// SingleEvalResult is the outcome of rendering one candidate program in
// single-frame mode (spec §4.6 evaluateSingle), grounded on
// CoreEvaluator::evaluateSingle (original_source/src/optimization/CoreEvaluator.cpp).
type SingleEvalResult struct {
	Cost  uint64
	Lines []LineResult
}

// EvaluateSingle renders pic and scores it against the precomputed
// single-frame error map (costFn).
func EvaluateSingle(exec *Executor, pic *Program, costFn CostFunc) SingleEvalResult {
	cost, lines := exec.Execute(pic, costFn, false)
	return SingleEvalResult{Cost: cost, Lines: lines}
}

// DualEvalResult is the outcome of one dual-frame coordinate-descent
// step: the fixed frame rendered plain, the mutated frame rendered
// pair-aware against it, and the resulting pair objective.
type DualEvalResult struct {
	Cost   uint64
	LinesA []LineResult
	LinesB []LineResult
}

// EvaluateDual implements spec §4.6 evaluateDual: render the fixed
// frame first without pair awareness (using the ordinary single-frame
// cost function), then render the mutated frame pair-aware against the
// fixed frame's rendered rows (§4.7's pair cost). The mutated render's
// total error already equals the pair-objective sum since both use the
// identical per-pixel formula, so no separate recomputation pass is
// needed (CoreEvaluator::evaluateDual recomputes it from scratch; here
// it falls out of the render for free).
func EvaluateDual(exec *Executor, picA, picB *Program, mutateB bool, plainCostFn CostFunc, dm *DualModel, evaluations uint64) DualEvalResult {
	if mutateB {
		_, linesA := exec.Execute(picA, plainCostFn, false)
		fixed := flattenColorRows(linesA, exec.Width)
		pairFn := dm.PairCostFn(fixed, evaluations)
		cost, linesB := exec.Execute(picB, pairFn, true)
		return DualEvalResult{Cost: cost, LinesA: linesA, LinesB: linesB}
	}

	_, linesB := exec.Execute(picB, plainCostFn, false)
	fixed := flattenColorRows(linesB, exec.Width)
	pairFn := dm.PairCostFn(fixed, evaluations)
	cost, linesA := exec.Execute(picA, pairFn, true)
	return DualEvalResult{Cost: cost, LinesA: linesA, LinesB: linesB}
}

func flattenColorRows(lines []LineResult, width int) []uint8 {
	flat := make([]uint8, len(lines)*width)
	for y, l := range lines {
		copy(flat[y*width:], l.ColorRow)
	}
	return flat
}

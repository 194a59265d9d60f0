package ml

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
)

// Plot dimensions for the persisted curve renderings.
const (
	plotWidth  = 70
	plotHeight = 16
)

// RenderROC renders an ROC curve as a text plot: TPR sampled over a
// uniform FPR grid so the x axis is linear.
func RenderROC(e *ModelEvaluation) string {
	series := sampleCurve(e.ROC.X, e.ROC.Y, plotWidth)
	graph := asciigraph.Plot(series,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Caption(fmt.Sprintf("ROC %s (AUC=%.3f)  x: FPR 0..1, y: TPR", e.Name, e.ROCAUC)),
	)
	return graph + "\n"
}

// RenderPR renders the precision-recall curve, precision over a uniform
// recall grid.
func RenderPR(e *ModelEvaluation) string {
	series := sampleCurve(e.PR.X, e.PR.Y, plotWidth)
	graph := asciigraph.Plot(series,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Caption(fmt.Sprintf("PR %s (AP=%.3f)  x: recall 0..1, y: precision", e.Name, e.PRAUC)),
	)
	return graph + "\n"
}

// sampleCurve resamples an (x,y) step curve onto a uniform x grid with the
// given number of points, carrying the last y forward. Points may arrive
// unsorted in x (PR curves step in recall order already, ROC in FPR order).
func sampleCurve(xs, ys []float64, points int) []float64 {
	out := make([]float64, points+1)
	for i := 0; i <= points; i++ {
		gx := float64(i) / float64(points)
		y := 0.0
		found := false
		for j := range xs {
			if xs[j] <= gx {
				y = ys[j]
				found = true
			} else {
				break
			}
		}
		if !found && len(ys) > 0 {
			y = ys[0]
		}
		out[i] = y
	}
	return out
}

package simulate

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSpearman(t *testing.T) {
	Convey("Given two samples", t, func() {
		Convey("Then identical orderings correlate perfectly", func() {
			So(spearman([]float64{1, 2, 3, 4}, []float64{10, 20, 35, 1000}), ShouldAlmostEqual, 1.0, 1e-12)
		})

		Convey("Then reversed orderings correlate negatively", func() {
			So(spearman([]float64{1, 2, 3, 4}, []float64{4, 3, 2, 1}), ShouldAlmostEqual, -1.0, 1e-12)
		})

		Convey("Then ties share their average rank", func() {
			So(ranks([]float64{5, 1, 5, 3}), ShouldResemble, []float64{3.5, 1, 3.5, 2})
		})

		Convey("Then degenerate inputs yield zero", func() {
			So(spearman([]float64{1, 1, 1}, []float64{1, 2, 3}), ShouldEqual, 0)
			So(spearman([]float64{1, 2}, []float64{1}), ShouldEqual, 0)
			So(spearman(nil, nil), ShouldEqual, 0)
		})
	})
}

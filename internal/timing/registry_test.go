package timing

import (
	"bytes"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func names(cs []Component) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name()
	}
	return out
}

var _ = Describe("Component registry", func() {
	var (
		m          *Model
		a, b, c, d *constDelay
	)

	BeforeEach(func() {
		m = NewModel("J0000+0000", WithLogger(quietLogger()))
		a = newConstDelay("A", "DA", 1)
		b = newConstDelay("B", "DB", 2)
		c = newConstDelay("C", "DC", 3)
		d = newConstDelay("D", "DD", 4)
	})

	addAll := func(cs ...Component) {
		for _, x := range cs {
			Expect(m.AddComponent(x)).To(Succeed())
		}
	}

	Context("when adding", func() {
		It("should append at max+1 starting from 1", func() {
			addAll(a, b)
			Expect(m.Orders(DelayKind)).To(Equal([]int{1, 2}))
		})

		It("should insert at a free explicit key", func() {
			addAll(a)
			Expect(m.AddComponent(b, AtOrder(5))).To(Succeed())
			Expect(m.AddComponent(c)).To(Succeed())
			Expect(m.Orders(DelayKind)).To(Equal([]int{1, 5, 6}))
			Expect(names(m.ComponentsOf(DelayKind))).To(Equal([]string{"A", "B", "C"}))
		})

		It("should append for order zero", func() {
			addAll(a)
			Expect(m.AddComponent(b, AtOrder(0))).To(Succeed())
			Expect(m.AddComponent(c, AtOrder(-3))).To(Succeed())
			Expect(m.Orders(DelayKind)).To(Equal([]int{1, 2, 3}))
			Expect(names(m.ComponentsOf(DelayKind))).To(Equal([]string{"A", "B", "C"}))
		})

		It("should shift keys at or after a colliding key", func() {
			addAll(a, b, c)
			Expect(m.AddComponent(d, AtOrder(2))).To(Succeed())
			Expect(names(m.ComponentsOf(DelayKind))).To(Equal([]string{"A", "D", "B", "C"}))
			Expect(m.Orders(DelayKind)).To(Equal([]int{1, 2, 3, 4}))
		})

		It("should create a bucket for a new kind", func() {
			x := newConstDelay("Noise", "DN", 0)
			x.kind = Kind("NoiseComponent")
			Expect(m.AddComponent(x)).To(Succeed())
			Expect(m.Kinds()).To(ContainElement(Kind("NoiseComponent")))
			Expect(m.ComponentsOf("NoiseComponent")).To(HaveLen(1))
		})

		It("should ignore a duplicate type without force", func() {
			var buf bytes.Buffer
			m = NewModel("J0000+0000", WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
			addAll(a)
			dup := newConstDelay("A", "DA2", 5)
			Expect(m.AddComponent(dup)).To(Succeed())
			Expect(m.ComponentsOf(DelayKind)).To(HaveLen(1))
			Expect(buf.String()).To(ContainSubstring("component already added"))
			Expect(dup.Model()).To(BeNil())
		})

		It("should append a duplicate type with force", func() {
			addAll(a)
			dup := newConstDelay("A", "DA2", 5)
			Expect(m.AddComponent(dup, Force())).To(Succeed())
			Expect(m.ComponentsOf(DelayKind)).To(HaveLen(2))
			Expect(m.Orders(DelayKind)).To(Equal([]int{1, 2}))
		})

		It("should reject colliding parameter names", func() {
			addAll(a)
			clash := newConstDelay("Other", "DA", 1)
			err := m.AddComponent(clash)
			Expect(err).To(MatchError(ErrDuplicateParameter))
			var dpe *DuplicateParameterError
			Expect(err).To(BeAssignableToTypeOf(dpe))
			Expect(err.(*DuplicateParameterError).Owner).To(Equal("A"))
			Expect(m.ComponentsOf(DelayKind)).To(HaveLen(1))
		})
	})

	Context("when removing", func() {
		It("should not renumber the remaining keys", func() {
			addAll(a, b, c)
			Expect(m.RemoveComponent(b)).To(Succeed())
			Expect(m.Orders(DelayKind)).To(Equal([]int{1, 3}))
			Expect(b.Model()).To(BeNil())
		})

		It("should remove by name", func() {
			addAll(a, b)
			Expect(m.RemoveComponentByName("A")).To(Succeed())
			Expect(names(m.Components())).To(Equal([]string{"B"}))
		})

		It("should report unknown components", func() {
			Expect(m.RemoveComponent(a)).To(MatchError(ErrComponentNotFound))
			_, err := m.Component("Missing")
			Expect(err).To(MatchError(ErrComponentNotFound))
		})
	})

	Context("when reordering", func() {
		BeforeEach(func() {
			addAll(a, b, c, d)
		})

		It("should re-key to a free order", func() {
			Expect(m.ReorderComponent(a, 10, false)).To(Succeed())
			Expect(names(m.ComponentsOf(DelayKind))).To(Equal([]string{"B", "C", "D", "A"}))
			Expect(m.Orders(DelayKind)).To(Equal([]int{2, 3, 4, 10}))
		})

		It("should swap exactly two keys", func() {
			Expect(m.ReorderComponent(a, 3, true)).To(Succeed())
			Expect(names(m.ComponentsOf(DelayKind))).To(Equal([]string{"C", "B", "A", "D"}))
			Expect(m.Orders(DelayKind)).To(Equal([]int{1, 2, 3, 4}))
		})

		It("should make room when moving forward", func() {
			Expect(m.ReorderComponent(a, 3, false)).To(Succeed())
			Expect(names(m.ComponentsOf(DelayKind))).To(Equal([]string{"B", "C", "A", "D"}))
			Expect(m.Orders(DelayKind)).To(Equal([]int{1, 2, 3, 4}))
		})

		It("should make room when moving backward", func() {
			Expect(m.ReorderComponent(d, 2, false)).To(Succeed())
			Expect(names(m.ComponentsOf(DelayKind))).To(Equal([]string{"A", "D", "B", "C"}))
			Expect(m.Orders(DelayKind)).To(Equal([]int{1, 2, 3, 4}))
		})

		It("should report the order of a component", func() {
			kind, order, err := m.ComponentOrder(c)
			Expect(err).NotTo(HaveOccurred())
			Expect(kind).To(Equal(DelayKind))
			Expect(order).To(Equal(3))
		})

		It("should fail for a detached component", func() {
			x := newConstDelay("X", "DX", 0)
			Expect(m.ReorderComponent(x, 1, false)).To(MatchError(ErrComponentNotFound))
		})
	})
})

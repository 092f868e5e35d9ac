package tinyinject_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/andriiyaremenko/tinyinject"
)

var _ = Describe("Injector", func() {
	It("should return same Singleton instance", func() {
		c := new(counter)
		r := tinyinject.NewRegistry()
		tinyinject.Bind[*Service](r).To(countingService(c)).In(tinyinject.Singleton)

		injector, err := tinyinject.New(r)
		Expect(err).ShouldNot(HaveOccurred())

		s1, err := tinyinject.Resolve[*Service](injector)
		Expect(err).ShouldNot(HaveOccurred())

		s2, err := tinyinject.Resolve[*Service](injector)
		Expect(err).ShouldNot(HaveOccurred())

		Expect(s1).Should(BeIdenticalTo(s2))
		Expect(c.count()).Should(BeEquivalentTo(1))
	})

	It("should return new Transient instance every time", func() {
		c := new(counter)
		r := tinyinject.NewRegistry()
		tinyinject.Bind[*Service](r).To(countingService(c))

		injector, err := tinyinject.New(r)
		Expect(err).ShouldNot(HaveOccurred())

		s1 := tinyinject.MustResolve[*Service](injector)
		s2 := tinyinject.MustResolve[*Service](injector)

		Expect(s1).ShouldNot(BeIdenticalTo(s2))
		Expect(c.count()).Should(BeEquivalentTo(2))
	})

	It("should share Singleton between Transient consumers", func() {
		c := new(counter)
		r := tinyinject.NewRegistry()
		tinyinject.Bind[*Service](r).To(countingService(c)).In(tinyinject.Singleton)
		tinyinject.Bind[*Consumer](r).To(newConsumer)

		injector, err := tinyinject.New(r)
		Expect(err).ShouldNot(HaveOccurred())

		d1, err := tinyinject.Resolve[*Consumer](injector)
		Expect(err).ShouldNot(HaveOccurred())

		d2, err := tinyinject.Resolve[*Consumer](injector)
		Expect(err).ShouldNot(HaveOccurred())

		Expect(d1).ShouldNot(BeIdenticalTo(d2))
		Expect(d1.Service).Should(BeIdenticalTo(d2.Service))
		Expect(c.count()).Should(BeEquivalentTo(1))
	})

	It("should bind interface to concrete constructor", func() {
		r := tinyinject.NewRegistry()
		tinyinject.Bind[NameService](r).To(nameProviderConstructor)
		tinyinject.Bind[Greeter](r).To(newGreeter)

		injector, err := tinyinject.New(r)
		Expect(err).ShouldNot(HaveOccurred())

		g, err := tinyinject.Resolve[Greeter](injector)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(g.Greet()).Should(Equal("Hello Bob"))
	})

	It("should report cycle with exact chain", func() {
		r := tinyinject.NewRegistry()
		tinyinject.Bind[*A](r).To(newA)
		tinyinject.Bind[*B](r).To(newB)

		injector, err := tinyinject.New(r)
		Expect(err).ShouldNot(HaveOccurred())

		_, err = tinyinject.Resolve[*A](injector)
		Expect(err).Should(HaveOccurred())

		var cycle *tinyinject.CyclicDependencyError
		Expect(errors.As(err, &cycle)).Should(BeTrue())
		Expect(cycle.Chain).Should(Equal([]tinyinject.Key{
			tinyinject.KeyOf[*A](),
			tinyinject.KeyOf[*B](),
			tinyinject.KeyOf[*A](),
		}))
	})

	It("should report cycle of Singleton bindings", func() {
		r := tinyinject.NewRegistry()
		tinyinject.Bind[*A](r).To(newA).In(tinyinject.Singleton)
		tinyinject.Bind[*B](r).To(newB).In(tinyinject.Singleton)

		injector, err := tinyinject.New(r)
		Expect(err).ShouldNot(HaveOccurred())

		_, err = tinyinject.Resolve[*B](injector)
		Expect(err).Should(BeAssignableToTypeOf(new(tinyinject.CyclicDependencyError)))
		Expect(err.(*tinyinject.CyclicDependencyError).Chain).Should(HaveLen(3))
	})

	It("should report unbound key with requester chain", func() {
		r := tinyinject.NewRegistry()
		tinyinject.Bind[*Y](r).To(newY)

		injector, err := tinyinject.New(r)
		Expect(err).ShouldNot(HaveOccurred())

		_, err = tinyinject.Resolve[*Y](injector)

		var unbound *tinyinject.UnboundTypeError
		Expect(errors.As(err, &unbound)).Should(BeTrue())
		Expect(unbound.Key).Should(Equal(tinyinject.KeyOf[*X]()))
		Expect(unbound.Chain).Should(Equal([]tinyinject.Key{tinyinject.KeyOf[*Y](), tinyinject.KeyOf[*X]()}))
		Expect(err.Error()).Should(ContainSubstring("X"))
	})

	It("should report unbound requested key", func() {
		injector, err := tinyinject.New(tinyinject.NewRegistry())
		Expect(err).ShouldNot(HaveOccurred())

		_, err = tinyinject.Resolve[Greeter](injector)

		var unbound *tinyinject.UnboundTypeError
		Expect(errors.As(err, &unbound)).Should(BeTrue())
		Expect(unbound.Key).Should(Equal(tinyinject.KeyOf[Greeter]()))
		Expect(injector.Has(tinyinject.KeyOf[Greeter]())).Should(BeFalse())
	})

	It("should wrap provider error with key", func() {
		r := tinyinject.NewRegistry()
		tinyinject.Bind[NameService](r).To(func() (NameService, error) { return nil, errBoom })
		tinyinject.Bind[Greeter](r).To(newGreeter)

		injector, err := tinyinject.New(r)
		Expect(err).ShouldNot(HaveOccurred())

		_, err = tinyinject.Resolve[Greeter](injector)
		Expect(err).Should(MatchError(errBoom))

		var construction *tinyinject.ConstructionError
		Expect(errors.As(err, &construction)).Should(BeTrue())
		Expect(construction.Key).Should(Equal(tinyinject.KeyOf[NameService]()))
		Expect(construction.Lifetime).Should(Equal(tinyinject.Transient))
	})

	It("should turn provider panic into ConstructionError", func() {
		r := tinyinject.NewRegistry()
		tinyinject.Bind[NameService](r).To(func() NameService { panic("no names today") })

		injector, err := tinyinject.New(r)
		Expect(err).ShouldNot(HaveOccurred())

		_, err = tinyinject.Resolve[NameService](injector)
		Expect(err).Should(BeAssignableToTypeOf(new(tinyinject.ConstructionError)))
		Expect(err.Error()).Should(ContainSubstring("no names today"))
	})

	It("should not resolve siblings after first failure", func() {
		c := new(counter)
		r := tinyinject.NewRegistry()
		tinyinject.Bind[NameService](r).To(func() (NameService, error) { return nil, errBoom })
		tinyinject.Bind[*Service](r).To(countingService(c))
		tinyinject.Bind[string](r).To(func(NameService, *Service) string { return "" })

		injector, err := tinyinject.New(r)
		Expect(err).ShouldNot(HaveOccurred())

		_, err = tinyinject.Resolve[string](injector)
		Expect(err).Should(MatchError(errBoom))
		Expect(c.count()).Should(BeZero())
	})

	It("should retry failed Singleton construction", func() {
		attempts := 0
		r := tinyinject.NewRegistry()
		tinyinject.Bind[NameService](r).To(func() (NameService, error) {
			attempts++
			if attempts == 1 {
				return nil, errBoom
			}

			return NameProvider("Bob"), nil
		}).In(tinyinject.Singleton)

		injector, err := tinyinject.New(r)
		Expect(err).ShouldNot(HaveOccurred())

		_, err = tinyinject.Resolve[NameService](injector)
		Expect(err).Should(MatchError(errBoom))

		names, err := tinyinject.Resolve[NameService](injector)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(names.Name()).Should(Equal("Bob"))
		Expect(attempts).Should(Equal(2))
	})

	It("should resolve factory dependencies in order", func() {
		r := tinyinject.NewRegistry()
		tinyinject.Bind[NameService](r, tinyinject.Named("first")).ToInstance(NameProvider("Alice"))
		tinyinject.Bind[NameService](r, tinyinject.Named("second")).ToInstance(NameProvider("Bob"))
		tinyinject.Bind[string](r).ToFactory(
			func(a *tinyinject.Activation) (string, error) {
				Expect(a.NumDeps()).Should(Equal(2))
				Expect(a.Key()).Should(Equal(tinyinject.KeyOf[string]()))

				first := tinyinject.Dep[NameService](a, 0)
				second := a.Dep(1).(NameService)

				return first.Name() + " and " + second.Name(), nil
			},
			tinyinject.KeyOf[NameService]("first"),
			tinyinject.KeyOf[NameService]("second"),
		)

		injector, err := tinyinject.New(r)
		Expect(err).ShouldNot(HaveOccurred())

		Expect(tinyinject.MustResolve[string](injector)).Should(Equal("Alice and Bob"))
	})

	It("should resolve constructor parameters from qualified keys with Using", func() {
		r := tinyinject.NewRegistry()
		tinyinject.Bind[NameService](r, tinyinject.Named("admin")).ToInstance(NameProvider("root"))
		tinyinject.Bind[Greeter](r).To(newGreeter).Using(tinyinject.KeyOf[NameService]("admin"))

		injector, err := tinyinject.New(r, tinyinject.WithEagerValidation())
		Expect(err).ShouldNot(HaveOccurred())

		Expect(tinyinject.MustResolve[Greeter](injector).Greet()).Should(Equal("Hello root"))
	})

	It("should fill struct fields", func() {
		type Handler struct {
			Names   NameService
			Admin   NameService `inject:"admin"`
			Skipped *Service    `inject:"-"`
			private *Service
		}

		r := tinyinject.NewRegistry()
		tinyinject.Bind[NameService](r).ToInstance(NameProvider("Bob"))
		tinyinject.Bind[NameService](r, tinyinject.Named("admin")).ToInstance(NameProvider("root"))
		tinyinject.Bind[*Handler](r).ToStruct()
		tinyinject.Bind[Handler](r).ToProvider(tinyinject.Struct[Handler]())

		injector, err := tinyinject.New(r, tinyinject.WithEagerValidation())
		Expect(err).ShouldNot(HaveOccurred())

		h, err := tinyinject.Resolve[*Handler](injector)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(h.Names.Name()).Should(Equal("Bob"))
		Expect(h.Admin.Name()).Should(Equal("root"))
		Expect(h.Skipped).Should(BeNil())
		Expect(h.private).Should(BeNil())

		v, err := tinyinject.Resolve[Handler](injector)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(v.Admin.Name()).Should(Equal("root"))
	})

	It("should refuse struct binding of non struct type", func() {
		r := tinyinject.NewRegistry()
		tinyinject.Bind[NameProvider](r).ToStruct()

		_, err := tinyinject.New(r)
		Expect(err).Should(MatchError(tinyinject.ErrNotAStruct))
	})

	It("should apply decorators in order once per construction", func() {
		c := new(counter)
		r := tinyinject.NewRegistry()
		tinyinject.Bind[NameService](r).To(nameProviderConstructor).In(tinyinject.Singleton)
		tinyinject.Decorate(r, prefixDecorator("Mr."))
		tinyinject.Decorate(r, func(s NameService) (NameService, error) {
			c.inc()
			return prefixDecorator("Dear")(s)
		})

		injector, err := tinyinject.New(r)
		Expect(err).ShouldNot(HaveOccurred())

		for range 3 {
			names, err := tinyinject.Resolve[NameService](injector)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(names.Name()).Should(Equal("Dear Mr. Bob"))
		}

		Expect(c.count()).Should(BeEquivalentTo(1))
	})

	It("should report decorator error as ConstructionError", func() {
		r := tinyinject.NewRegistry()
		tinyinject.Bind[NameService](r).To(nameProviderConstructor)
		tinyinject.Decorate(r, func(NameService) (NameService, error) { return nil, errBoom })

		injector, err := tinyinject.New(r)
		Expect(err).ShouldNot(HaveOccurred())

		_, err = tinyinject.Resolve[NameService](injector)
		Expect(err).Should(MatchError(errBoom))
		Expect(err).Should(BeAssignableToTypeOf(new(tinyinject.ConstructionError)))
	})

	It("should dispose instances dropped by a failing decorator", func() {
		j := new(journal)
		r := tinyinject.NewRegistry()
		tinyinject.Bind[*Database](r).To(func() (*Database, tinyinject.Cleanup, error) {
			return &Database{journal: j}, func() error { j.add("cleanup"); return nil }, nil
		}).In(tinyinject.Singleton)
		tinyinject.Bind[*Repository](r).To(func() *Repository { return &Repository{journal: j} }).In(tinyinject.Scoped)
		tinyinject.Decorate(r, func(*Database) (*Database, error) { return nil, errBoom })
		tinyinject.Decorate(r, func(*Repository) (*Repository, error) { panic("decorator panicked") })

		injector, err := tinyinject.New(r)
		Expect(err).ShouldNot(HaveOccurred())

		_, err = tinyinject.Resolve[*Database](injector)
		Expect(err).Should(MatchError(errBoom))
		Expect(j.list()).Should(Equal([]string{"cleanup"}))

		scope := injector.CreateScope()

		_, err = tinyinject.Resolve[*Repository](scope)
		Expect(err).Should(MatchError(ContainSubstring("decorator panicked")))
		Expect(j.list()).Should(Equal([]string{"cleanup", "repository"}))

		Expect(scope.Close()).Should(Succeed())
		Expect(injector.Shutdown(context.Background())).Should(Succeed())
		Expect(j.list()).Should(Equal([]string{"cleanup", "repository"}), "dropped instances should be disposed once")
	})

	It("should log provider panics with the injector logger", func() {
		var buf bytes.Buffer

		r := tinyinject.NewRegistry()
		tinyinject.Bind[NameService](r).To(func() NameService { panic("no name") })

		injector, err := tinyinject.New(r, tinyinject.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
		Expect(err).ShouldNot(HaveOccurred())

		_, err = tinyinject.Resolve[NameService](injector)
		Expect(err).Should(MatchError(ContainSubstring("no name")))
		Expect(buf.String()).Should(ContainSubstring("provider panicked"))
		Expect(buf.String()).Should(ContainSubstring("NameService"))
	})

	It("should resolve by key", func() {
		r := tinyinject.NewRegistry()
		tinyinject.Bind[NameService](r).To(nameProviderConstructor)

		injector, err := tinyinject.New(r)
		Expect(err).ShouldNot(HaveOccurred())

		v, err := tinyinject.ResolveKey(injector, tinyinject.KeyOf[NameService]())
		Expect(err).ShouldNot(HaveOccurred())
		Expect(v).Should(Equal(NameProvider("Bob")))
		Expect(injector.Keys()).Should(ConsistOf(tinyinject.KeyOf[NameService]()))
	})

	It("should panic in MustResolve on error", func() {
		injector, err := tinyinject.New(tinyinject.NewRegistry())
		Expect(err).ShouldNot(HaveOccurred())

		Expect(func() { tinyinject.MustResolve[Greeter](injector) }).Should(Panic())
	})

	It("should resolve nil instance", func() {
		r := tinyinject.NewRegistry()
		tinyinject.Bind[NameService](r).ToInstance(nil)
		tinyinject.Bind[Greeter](r).To(newGreeter)

		injector, err := tinyinject.New(r)
		Expect(err).ShouldNot(HaveOccurred())

		names, err := tinyinject.Resolve[NameService](injector)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(names).Should(BeNil())

		g, err := tinyinject.Resolve[Greeter](injector)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(g.(*greeter).names).Should(BeNil())
	})

	Context("Prepare", func() {
		It("should return same Singleton as Resolve", func() {
			r := tinyinject.NewRegistry()
			tinyinject.Bind[*Service](r).To(countingService(new(counter))).In(tinyinject.Singleton)

			injector, err := tinyinject.New(r)
			Expect(err).ShouldNot(HaveOccurred())

			lazy, err := tinyinject.Prepare[*Service](injector)
			Expect(err).ShouldNot(HaveOccurred())

			s1, err := lazy(injector)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(s1).Should(BeIdenticalTo(tinyinject.MustResolve[*Service](injector)))
		})

		It("should fail for unbound key", func() {
			injector, err := tinyinject.New(tinyinject.NewRegistry())
			Expect(err).ShouldNot(HaveOccurred())

			_, err = tinyinject.Prepare[*Service](injector)
			Expect(err).Should(BeAssignableToTypeOf(new(tinyinject.UnboundTypeError)))
		})

		It("should refuse resolver of another injector", func() {
			r := tinyinject.NewRegistry()
			tinyinject.Bind[*Service](r).To(countingService(new(counter)))

			injector, err := tinyinject.New(r)
			Expect(err).ShouldNot(HaveOccurred())

			other, err := tinyinject.New(r)
			Expect(err).ShouldNot(HaveOccurred())

			lazy, err := tinyinject.Prepare[*Service](injector)
			Expect(err).ShouldNot(HaveOccurred())

			_, err = lazy(other.CreateScope())
			Expect(err).Should(MatchError(tinyinject.ErrForeignResolver))
		})
	})

	Context("Shutdown", func() {
		It("should dispose Singletons in reverse order", func() {
			j := new(journal)
			r := tinyinject.NewRegistry()
			tinyinject.Bind[*Database](r).To(func() *Database { return &Database{journal: j} }).In(tinyinject.Singleton)
			tinyinject.Bind[*Repository](r).To(func(db *Database) *Repository {
				return &Repository{Database: db, journal: j}
			}).In(tinyinject.Singleton)

			injector, err := tinyinject.New(r)
			Expect(err).ShouldNot(HaveOccurred())

			_, err = tinyinject.Resolve[*Repository](injector)
			Expect(err).ShouldNot(HaveOccurred())

			Expect(injector.Shutdown(context.Background())).ShouldNot(HaveOccurred())
			Expect(j.list()).Should(Equal([]string{"repository", "database"}))
		})

		It("should refuse second shutdown and resolving afterwards", func() {
			r := tinyinject.NewRegistry()
			tinyinject.Bind[NameService](r).To(nameProviderConstructor)

			injector, err := tinyinject.New(r)
			Expect(err).ShouldNot(HaveOccurred())

			Expect(injector.Shutdown(context.Background())).ShouldNot(HaveOccurred())
			Expect(injector.Shutdown(context.Background())).Should(MatchError(tinyinject.ErrAlreadyShutdown))

			_, err = tinyinject.Resolve[NameService](injector)
			Expect(err).Should(MatchError(tinyinject.ErrInjectorShutdown))
		})

		It("should not dispose instances bound with ToInstance", func() {
			j := new(journal)
			r := tinyinject.NewRegistry()
			tinyinject.Bind[*Database](r).ToInstance(&Database{journal: j})

			injector, err := tinyinject.New(r)
			Expect(err).ShouldNot(HaveOccurred())

			_, err = tinyinject.Resolve[*Database](injector)
			Expect(err).ShouldNot(HaveOccurred())

			Expect(injector.Shutdown(context.Background())).ShouldNot(HaveOccurred())
			Expect(j.list()).Should(BeEmpty())
		})

		It("should stop disposing once context is done", func() {
			j := new(journal)
			r := tinyinject.NewRegistry()
			tinyinject.Bind[*Database](r).To(func() *Database { return &Database{journal: j} }).In(tinyinject.Singleton)

			injector, err := tinyinject.New(r)
			Expect(err).ShouldNot(HaveOccurred())

			_, err = tinyinject.Resolve[*Database](injector)
			Expect(err).ShouldNot(HaveOccurred())

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			Expect(injector.Shutdown(ctx)).Should(MatchError(context.Canceled))
			Expect(j.list()).Should(BeEmpty())
		})
	})

	It("should log activations with trace enabled", func() {
		buf := new(bytes.Buffer)
		log := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

		r := tinyinject.NewRegistry()
		tinyinject.Bind[NameService](r).To(nameProviderConstructor).In(tinyinject.Singleton)

		injector, err := tinyinject.New(r, tinyinject.WithLogger(log), tinyinject.WithTrace())
		Expect(err).ShouldNot(HaveOccurred())

		_, err = tinyinject.Resolve[NameService](injector)
		Expect(err).ShouldNot(HaveOccurred())

		Expect(buf.String()).Should(ContainSubstring("activated"))
		Expect(buf.String()).Should(ContainSubstring("NameService"))
		Expect(buf.String()).Should(ContainSubstring("lifetime=Singleton"))
	})
})

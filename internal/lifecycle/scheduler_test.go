package lifecycle

import (
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/stacksim/internal/bus"
	"github.com/san-kum/stacksim/internal/config"
	"github.com/san-kum/stacksim/internal/world"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newScheduler(cfg *config.Config, host *recordingHost, opts ...Option) *Scheduler {
	opts = append([]Option{WithRand(rand.New(rand.NewSource(7)))}, opts...)
	s, err := New(cfg, host, opts...)
	Expect(err).NotTo(HaveOccurred())
	return s
}

var _ = Describe("Scheduler", func() {
	var (
		cfg  *config.Config
		host *recordingHost
	)

	BeforeEach(func() {
		cfg = config.DefaultConfig()
		host = newRecordingHost()
	})

	Describe("initialization", func() {
		It("retries with backoff until the container has a size", func() {
			var w, h float64
			s := newScheduler(cfg, host, WithContainer(ContainerFunc(func() (float64, float64) { return w, h })))

			Expect(s.Advance(t0)).To(Succeed())
			Expect(s.State()).To(Equal(Uninitialized))
			Expect(s.InitAttempts()).To(Equal(1))

			Expect(s.Advance(t0.Add(time.Millisecond))).To(Succeed())
			Expect(s.InitAttempts()).To(Equal(1), "attempted again before the backoff elapsed")

			w, h = 800, 600
			Expect(s.Advance(t0.Add(3 * time.Second))).To(Succeed())
			Expect(s.State()).To(Equal(Running))
			Expect(s.World().Initialized()).To(BeTrue())
		})

		It("rejects a negative container size", func() {
			s := newScheduler(cfg, host, WithContainer(ContainerFunc(func() (float64, float64) { return -1, 600 })))

			err := s.Advance(t0)
			Expect(err).To(MatchError(world.ErrInvalidDimensions))
			Expect(s.State()).To(Equal(Uninitialized))
		})

		It("uses a resize received before initialization", func() {
			s := newScheduler(cfg, host)
			Expect(s.Advance(t0)).To(Succeed())
			Expect(s.State()).To(Equal(Uninitialized))

			Expect(s.Resize(640, 480)).To(Succeed())
			Expect(s.Advance(t0.Add(time.Millisecond))).To(Succeed())
			Expect(s.State()).To(Equal(Running))
			w, h := s.World().Size()
			Expect([]float64{w, h}).To(Equal([]float64{640, 480}))
		})

		It("starts paused when hidden before the container is measured", func() {
			var w, h float64
			s := newScheduler(cfg, host, WithContainer(ContainerFunc(func() (float64, float64) { return w, h })))

			s.Pause()
			Expect(s.Advance(t0)).To(Succeed())
			Expect(s.State()).To(Equal(Uninitialized))

			w, h = 800, 600
			Expect(s.Advance(t0.Add(3 * time.Second))).To(Succeed())
			Expect(s.State()).To(Equal(Paused))
			Expect(s.World().Initialized()).To(BeTrue())
			Expect(s.World().Steps()).To(BeZero())

			s.Resume()
			Expect(s.State()).To(Equal(Running))
		})

		It("drops an early pause that was followed by a resume", func() {
			s := newScheduler(cfg, host)
			s.Pause()
			s.Resume()
			Expect(s.Init(800, 600)).To(Succeed())
			Expect(s.State()).To(Equal(Running))
		})

		It("runs frames at the smallest accepted step", func() {
			cfg.Dt = config.MinFrameStep.Seconds()
			s := newScheduler(cfg, host)
			Expect(s.Init(800, 600)).To(Succeed())
			Expect(s.Advance(t0)).To(Succeed())
			Expect(s.Advance(t0.Add(time.Second))).To(Succeed())
			Expect(s.World().Steps()).To(BeEquivalentTo(cfg.MaxSubSteps))
		})

		It("refuses a second Init", func() {
			s := newScheduler(cfg, host)
			Expect(s.Init(800, 600)).To(Succeed())
			Expect(s.Init(800, 600)).To(MatchError(ErrAlreadyInitialized))
		})

		It("ignores spawn callbacks that arrive before Init", func() {
			s := newScheduler(cfg, host)
			s.FireSpawn()
			s.Frame()
			Expect(host.created).To(BeZero())
			Expect(s.Pool().Len()).To(BeZero())
		})
	})

	Describe("population", func() {
		It("plateaus at the hard limit with culling out of the way", func() {
			cfg.HardLimit = 40
			cfg.MaxObjects = 30
			cfg.SpawnIntervalMs = 1000
			cfg.CullMargin = 1e9
			s := newScheduler(cfg, host)
			Expect(s.Init(800, 600)).To(Succeed())

			frozen := -1
			for tick := 0; tick < 60; tick++ {
				s.FireSpawn()
				Expect(s.Pool().Len()).To(BeNumerically("<=", 40))
				if s.Pool().Len() == 40 && frozen < 0 {
					frozen = s.Spawner().Total()
				}
				if frozen >= 0 {
					Expect(s.Spawner().Total()).To(Equal(frozen))
				}
			}
			Expect(s.Pool().Len()).To(Equal(40))
			Expect(s.Stats().Skipped).To(BeEquivalentTo(20))
		})

		It("keeps live count and handle count equal through a long run", func() {
			cfg.SpawnIntervalMs = 20
			cfg.MaxObjects = 15
			cfg.HardLimit = 20
			s := newScheduler(cfg, host)
			Expect(s.Init(400, 300)).To(Succeed())

			now := t0
			for i := 0; i < 1500; i++ {
				now = now.Add(cfg.FrameStep())
				Expect(s.Advance(now)).To(Succeed())
				Expect(s.Pool().Len()).To(BeNumerically("<=", cfg.HardLimit))
				Expect(len(host.live)).To(Equal(s.Pool().Len()))
				Expect(s.Synchronizer().Handles()).To(Equal(s.Pool().Len()))
			}
			Expect(host.created).To(BeNumerically(">", 0))
		})

		It("fires the spawn timer at most once per call", func() {
			cfg.SpawnIntervalMs = 100
			s := newScheduler(cfg, host)
			Expect(s.Init(800, 600)).To(Succeed())

			Expect(s.Advance(t0)).To(Succeed())
			Expect(s.Advance(t0.Add(10 * time.Second))).To(Succeed())
			Expect(s.Spawner().Total()).To(Equal(1))
		})

		It("isolates host failures to the spawn that hit them", func() {
			host.explode = true
			s := newScheduler(cfg, host)
			Expect(s.Init(800, 600)).To(Succeed())

			for i := 0; i < 5; i++ {
				s.FireSpawn()
			}
			Expect(s.Pool().Len()).To(BeZero())
			Expect(s.Spawner().Total()).To(BeZero())
			Expect(s.Stats().HandleFailures).To(BeEquivalentTo(5))

			host.explode = false
			s.FireSpawn()
			Expect(s.Pool().Len()).To(Equal(1))
		})
	})

	Describe("pause and resume", func() {
		var s *Scheduler

		BeforeEach(func() {
			s = newScheduler(cfg, host)
			Expect(s.Init(800, 600)).To(Succeed())
			Expect(s.Advance(t0)).To(Succeed())
			s.FireSpawn()
			Expect(s.Advance(t0.Add(cfg.FrameStep()))).To(Succeed())
		})

		It("is idempotent", func() {
			s.Pause()
			once := s.Stats()
			s.Pause()
			Expect(s.Stats()).To(Equal(once))
			Expect(s.State()).To(Equal(Paused))

			s.Resume()
			s.Resume()
			Expect(s.State()).To(Equal(Running))
		})

		It("stops physics but keeps entities", func() {
			live := s.Pool().Len()
			steps := s.World().Steps()
			s.Pause()

			now := t0.Add(time.Second)
			for i := 0; i < 30; i++ {
				now = now.Add(cfg.FrameStep())
				Expect(s.Advance(now)).To(Succeed())
			}
			Expect(s.World().Steps()).To(Equal(steps))
			Expect(s.Pool().Len()).To(BeNumerically(">=", live))
		})

		It("resumes without catching up on paused time", func() {
			s.Pause()
			steps := s.World().Steps()

			later := t0.Add(time.Hour)
			s.Resume()
			Expect(s.Advance(later)).To(Succeed())
			Expect(s.World().Steps()).To(Equal(steps))

			Expect(s.Advance(later.Add(cfg.FrameStep()))).To(Succeed())
			Expect(s.World().Steps()).To(Equal(steps + 1))
		})

		It("caps physics steps per frame", func() {
			steps := s.World().Steps()
			Expect(s.Advance(t0.Add(time.Minute))).To(Succeed())
			Expect(s.World().Steps() - steps).To(BeEquivalentTo(cfg.MaxSubSteps))
		})
	})

	Describe("resize", func() {
		It("moves boundaries and leaves poses alone", func() {
			s := newScheduler(cfg, host)
			Expect(s.Init(800, 600)).To(Succeed())
			s.FireSpawn()
			s.FireSpawn()

			before := make([]world.Pose, 0)
			for _, b := range s.Pool().Bodies() {
				before = append(before, b.Pose)
			}

			Expect(s.Resize(400, 300)).To(Succeed())
			for i, b := range s.Pool().Bodies() {
				Expect(b.Pose).To(Equal(before[i]))
			}

			for _, b := range s.World().Boundaries() {
				switch b.Kind {
				case world.Floor:
					Expect(b.Min.Y).To(Equal(300.0))
				case world.RightWall:
					Expect(b.Min.X).To(Equal(400.0))
				}
			}
		})

		It("rejects non-positive sizes once running", func() {
			s := newScheduler(cfg, host)
			Expect(s.Init(800, 600)).To(Succeed())
			Expect(s.Resize(0, 300)).To(MatchError(world.ErrInvalidDimensions))
		})
	})

	Describe("destroy", func() {
		It("releases everything and ignores stale callbacks", func() {
			s := newScheduler(cfg, host)
			Expect(s.Init(800, 600)).To(Succeed())
			for i := 0; i < 10; i++ {
				s.FireSpawn()
			}
			Expect(s.Advance(t0)).To(Succeed())
			Expect(host.live).NotTo(BeEmpty())

			s.Destroy()
			Expect(s.State()).To(Equal(Destroyed))
			Expect(s.Pool().Len()).To(BeZero())
			Expect(host.live).To(BeEmpty())
			Expect(s.World().Boundaries()).To(BeEmpty())
			Expect(s.World().Initialized()).To(BeFalse())
			Expect(s.Spawner().Armed()).To(BeFalse())

			created, applied, steps := host.created, host.applied, s.World().Steps()
			s.FireSpawn()
			s.Frame()
			Expect(s.Advance(t0.Add(time.Minute))).To(Succeed())
			Expect(s.Resize(100, 100)).To(Succeed())
			Expect(s.Init(800, 600)).To(MatchError(ErrDestroyed))

			Expect(host.created).To(Equal(created))
			Expect(host.applied).To(Equal(applied))
			Expect(s.World().Steps()).To(Equal(steps))

			Expect(s.Destroy).NotTo(Panic())
		})
	})

	Describe("reset", func() {
		It("clears entities and restarts a stopped spawner", func() {
			cfg.MaxObjects = 3
			cfg.HardLimit = 20
			cfg.Throttle.StopBuffer = 1
			s := newScheduler(cfg, host)
			Expect(s.Init(800, 600)).To(Succeed())
			for i := 0; i < 10; i++ {
				s.FireSpawn()
			}
			Expect(s.Spawner().Armed()).To(BeFalse())

			s.Reset()
			Expect(s.Pool().Len()).To(BeZero())
			Expect(host.live).To(BeEmpty())
			Expect(s.Spawner().Armed()).To(BeTrue())
			Expect(s.Spawner().Total()).To(BeZero())
		})
	})

	Describe("interaction and events", func() {
		It("reports the category under the pointer", func() {
			var got []string
			s := newScheduler(cfg, host, WithInteraction(func(c string) { got = append(got, c) }))
			Expect(s.Init(800, 600)).To(Succeed())
			s.FireSpawn()

			b := s.Pool().Bodies()[0]
			category, ok := s.Interact(b.Pose.X, b.Pose.Y)
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal([]string{category}))

			_, ok = s.Interact(-5000, -5000)
			Expect(ok).To(BeFalse())
		})

		It("delivers events at the end of Advance", func() {
			b := bus.New()
			var spawned, changes int
			bus.Subscribe(b, func(Spawned) { spawned++ })
			bus.Subscribe(b, func(StateChanged) { changes++ })

			s := newScheduler(cfg, host, WithBus(b))
			Expect(s.Init(800, 600)).To(Succeed())
			s.FireSpawn()
			Expect(spawned).To(BeZero())

			Expect(s.Advance(t0)).To(Succeed())
			Expect(spawned).To(Equal(1))
			Expect(changes).To(Equal(1))

			s.Destroy()
			Expect(changes).To(Equal(2))
		})
	})
})

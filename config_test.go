package main

import "testing"

func TestDefaultConfigResolvesCleanly(t *testing.T) {
	c := DefaultConfig()
	if err := c.Resolve(); err != nil {
		t.Fatalf("expected default config to resolve without error, got %v", err)
	}
	if !c.SaveAuto {
		t.Error("expected save=auto to resolve SaveAuto=true")
	}
	if !c.SeedRand {
		t.Error("expected seed=random to resolve SeedRand=true")
	}
}

func TestConfigResolveNumericSaveAndSeed(t *testing.T) {
	c := DefaultConfig()
	c.Save = "500"
	c.Seed = "12345"
	if err := c.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if c.SaveAuto {
		t.Error("expected numeric save to clear SaveAuto")
	}
	if c.SavePeriod != 500 {
		t.Errorf("SavePeriod = %d, want 500", c.SavePeriod)
	}
	if c.SeedRand {
		t.Error("expected numeric seed to clear SeedRand")
	}
	if c.SeedVal != 12345 {
		t.Errorf("SeedVal = %d, want 12345", c.SeedVal)
	}
}

func TestConfigResolveRejectsInvalidFields(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Threads = 0 },
		func(c *Config) { c.CacheMB = 0 },
		func(c *Config) { c.HistoryLength = 0 },
		func(c *Config) { c.Save = "not-a-number" },
		func(c *Config) { c.Seed = "not-a-number" },
		func(c *Config) { c.Optimizer = "bogus" },
		func(c *Config) { c.DualStrategy = "bogus" },
		func(c *Config) { c.DualInit = "bogus" },
		func(c *Config) { c.DualMutateRatio = 1.5 },
		func(c *Config) { c.DualMutateRatio = -0.1 },
		func(c *Config) { c.DualCrossShareProb = 2 },
		func(c *Config) { c.Metric = "bogus" },
	}
	for i, mutate := range cases {
		c := DefaultConfig()
		mutate(c)
		if err := c.Resolve(); err == nil {
			t.Errorf("case %d: expected Resolve to reject invalid config", i)
		}
	}
}

func TestConfigResolveAcceptsEveryEnumValue(t *testing.T) {
	for _, opt := range []string{"lahc", "dlas"} {
		c := DefaultConfig()
		c.Optimizer = opt
		if err := c.Resolve(); err != nil {
			t.Errorf("optimizer %q: unexpected error %v", opt, err)
		}
	}
	for _, strat := range []string{"alternate", "staged"} {
		c := DefaultConfig()
		c.DualStrategy = strat
		if err := c.Resolve(); err != nil {
			t.Errorf("dual_strategy %q: unexpected error %v", strat, err)
		}
	}
	for _, init := range []string{"dup", "random", "anti"} {
		c := DefaultConfig()
		c.DualInit = init
		if err := c.Resolve(); err != nil {
			t.Errorf("dual_init %q: unexpected error %v", init, err)
		}
	}
	for _, metric := range []string{"euclidean", "yuv", "cie76"} {
		c := DefaultConfig()
		c.Metric = metric
		if err := c.Resolve(); err != nil {
			t.Errorf("metric %q: unexpected error %v", metric, err)
		}
	}
}

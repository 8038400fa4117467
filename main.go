package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"time"

	"github.com/thethongngu/deep-learning-practices/IO"
	"github.com/thethongngu/deep-learning-practices/cvae"
	"github.com/thethongngu/deep-learning-practices/params"
	"github.com/thethongngu/deep-learning-practices/scoring"
	"github.com/thethongngu/deep-learning-practices/trainer"
)

var (
	trainPath  string
	testPath   string
	ckptPath   string
	csvPath    string
	dbPath     string
	evalOnly   bool
	configFlag = params.Config
)

func init() {
	flag.StringVar(&trainPath, "train", "dataset/train.txt", "training file: 4 tense forms per line")
	flag.StringVar(&testPath, "test", "dataset/test.txt", "test file: input and reference per line")
	flag.StringVar(&ckptPath, "ckpt", "models/best_cvae.gob", "best-BLEU checkpoint path (empty disables saving)")
	flag.StringVar(&csvPath, "metrics-csv", "training_log.csv", "CSV metrics log (empty disables)")
	flag.StringVar(&dbPath, "metrics-db", "", "SQLite metrics database (empty disables)")
	flag.BoolVar(&evalOnly, "eval", false, "load -ckpt, print conversions and prior samples, skip training")

	flag.IntVar(&configFlag.Epochs, "epochs", configFlag.Epochs, "training epochs")
	flag.Float64Var(&configFlag.LearningRate, "lr", configFlag.LearningRate, "learning rate")
	flag.StringVar(&configFlag.Optimizer, "optimizer", configFlag.Optimizer, "sgd or adam")
	flag.Float64Var(&configFlag.TeacherForcingRatio, "tf", configFlag.TeacherForcingRatio, "teacher forcing ratio")
	flag.Float64Var(&configFlag.KLWeight, "kl-weight", configFlag.KLWeight, "KL weight (final weight when annealing)")
	flag.StringVar(&configFlag.KLSchedule, "kl-schedule", configFlag.KLSchedule, "constant, monotonic or cyclical")
	flag.IntVar(&configFlag.KLAnnealEpochs, "kl-anneal", configFlag.KLAnnealEpochs, "KL ramp/cycle length in epochs")
	flag.Float64Var(&configFlag.GradClip, "clip", configFlag.GradClip, "global gradient norm clip (<=0 disables)")
	flag.IntVar(&configFlag.PriorSamples, "samples", configFlag.PriorSamples, "prior samples for the Gaussian score")
	flag.Uint64Var(&configFlag.Seed, "seed", configFlag.Seed, "random seed")
	flag.BoolVar(&configFlag.Shuffle, "shuffle", configFlag.Shuffle, "shuffle word tuples every epoch")
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := configFlag
	fmt.Println(params.DeviceInfo())

	vocab := IO.NewCharTable()
	words, err := IO.LoadTrainWords(trainPath)
	if err != nil {
		return err
	}
	tests, err := IO.LoadTestRecords(testPath)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d training tuples, %d test pairs.\n", len(words), len(tests))

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	model := cvae.New(cfg, vocab, rng)

	if evalOnly {
		meta, err := cvae.LoadModel(model, ckptPath)
		if err != nil {
			return err
		}
		fmt.Printf("Loaded %s (epoch %d, BLEU-4 %.4f)\n", ckptPath, meta.Epoch, meta.BLEU)
		return report(model, words, tests, cfg.PriorSamples, rng)
	}

	sinks := trainer.MultiSink{}
	mem := trainer.NewMemorySink()
	sinks = append(sinks, mem)
	if csvPath != "" {
		csvSink, err := IO.NewCSVMetrics(csvPath)
		if err != nil {
			return err
		}
		defer closeSink(os.Stdout, csvPath, csvSink)
		sinks = append(sinks, csvSink)
	}
	if dbPath != "" {
		dbSink, err := IO.NewSQLiteMetrics(dbPath)
		if err != nil {
			return err
		}
		defer closeSink(os.Stdout, dbPath, dbSink)
		fmt.Printf("Recording metrics to %s (run %s)\n", dbPath, dbSink.RunID())
		sinks = append(sinks, dbSink)
	}

	tr, err := trainer.New(model, trainer.Options{
		Config:         cfg,
		Words:          words,
		Tests:          tests,
		Sink:           sinks,
		Out:            os.Stdout,
		CheckpointPath: ckptPath,
	}, rng)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	t1 := time.Now()
	sum, err := tr.Train(ctx)
	if err != nil && ctx.Err() == nil {
		return err
	}
	if ctx.Err() != nil {
		fmt.Printf("\nInterrupted after %d epochs.\n", sum.Epochs)
	}
	fmt.Printf("\nTime taken to train: %s\n", time.Since(t1))
	fmt.Printf("Best BLEU-4 %.4f at epoch %d\n", tr.BestBLEU, tr.BestEpoch)
	fmt.Println("BLEU-4 per epoch:")
	asciiPlot(mem.Series[trainer.MetricBLEU])

	return report(model, words, tests, cfg.PriorSamples, rng)
}

// report prints the test conversions, prior samples and Gaussian score of model.
func report(model *cvae.Model, words []IO.WordTuple, tests []IO.TestRecord, samples int, rng *rand.Rand) error {
	eval, err := trainer.NewEvaluator(model, tests)
	if err != nil {
		return err
	}
	bleu, convs := eval.Evaluate(rng)
	printConversions(convs)
	fmt.Printf("BLEU-4 score: %.4f\n\n", bleu)

	gen := trainer.SamplePrior(model, samples, rng)
	printSamples(gen)
	fmt.Printf("Gaussian score: %.4f\n", scoring.GaussianScore(gen, words))
	return nil
}

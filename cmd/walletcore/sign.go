package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"WalletCore/internal/address"
	"WalletCore/internal/factors"
	"WalletCore/internal/logger"
	"WalletCore/internal/matrix"
	"WalletCore/internal/metrics"
	"WalletCore/internal/signing"
)

// intentFile is one transaction intent in a sign file.
type intentFile struct {
	Nonce    uint32            `toml:"nonce"`
	Manifest string            `toml:"manifest"`
	Message  string            `toml:"message"`
	Signers  []address.Address `toml:"signers"`
}

// signFile is a batch of intents to sign together.
type signFile struct {
	Roles   []matrix.RoleKind `toml:"roles"`
	Intents []intentFile      `toml:"intents"`
}

// signFlags are the flags of sign.
var signFlags struct {
	keepGoing   bool
	stopOnFail  bool
	metricsFile string
}

// signCmd collects signatures for every intent of a file.
var signCmd = &cobra.Command{
	Use:   "sign <file>",
	Short: "Collect signatures for the transaction intents of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var sf signFile
		if _, err := toml.DecodeFile(args[0], &sf); err != nil {
			return fmt.Errorf("decode intents %s:\n%w", args[0], err)
		}

		if len(sf.Roles) == 0 {
			sf.Roles = []matrix.RoleKind{matrix.Primary}
		}

		w, err := openWallet(cfg)
		if err != nil {
			return err
		}
		defer w.Close()

		if err := w.connect(cmd.Context()); err != nil {
			return err
		}

		p, err := w.loadProfile()
		if err != nil {
			return err
		}

		signables := make([]signing.SignableWithEntities[signing.TransactionIntent], 0, len(sf.Intents))
		for _, in := range sf.Intents {
			tx := signing.TransactionIntent{
				Network:  w.network,
				Nonce:    in.Nonce,
				Manifest: []byte(in.Manifest),
				Message:  in.Message,
				Signers:  in.Signers,
			}

			s, err := signing.NewSignableWithEntities(tx, p)
			if err != nil {
				return fmt.Errorf("intent %d:\n%w", in.Nonce, err)
			}
			signables = append(signables, s)
		}

		m := metrics.New()

		strategy := signing.DefaultFinishEarlyStrategy()
		if signFlags.keepGoing {
			strategy.WhenAllValid = signing.Continue
		}
		if signFlags.stopOnFail {
			strategy.WhenSomeInvalid = signing.FinishEarly
		}

		collector, err := signing.NewSignaturesCollector(p.FactorSources, signables, w.signer,
			signing.SignTXWithRoles(sf.Roles...),
			signing.WithFinishEarlyStrategy(strategy),
			signing.WithObserver(signing.JoinObservers(
				signing.NewLogObserver(logger.With("component", "signing")),
				m.SigningObserver(),
			)),
		)
		if err != nil {
			return err
		}

		outcome, err := collector.Collect(cmd.Context())
		if err != nil {
			return err
		}

		if used := signers(outcome); len(used) > 0 {
			if err := w.store.MarkFactorSourcesUsed(used, time.Now().UTC()); err != nil {
				return err
			}
		}

		if signFlags.metricsFile != "" {
			if err := prometheus.WriteToTextfile(signFlags.metricsFile, m.Registry()); err != nil {
				return fmt.Errorf("write metrics:\n%w", err)
			}
		}

		return printJSON(cmd, outcomeView(outcome))
	},
}

// signers returns every factor source that produced a signature.
func signers(o signing.SignaturesOutcome[signing.TransactionIntent]) []factors.FactorSourceID {
	seen := make(map[factors.FactorSourceID]bool)
	var ids []factors.FactorSourceID

	for _, s := range o.AllSignatures() {
		if id := s.FactorSourceID(); !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	return ids
}

// payloadView is the printed result of one intent.
type payloadView struct {
	Payload    string          `json:"payload"`
	Nonce      uint32          `json:"nonce"`
	Signatures []signatureView `json:"signatures"`
	Neglected  []neglectView   `json:"neglected,omitempty"`
}

// signatureView is one printed signature.
type signatureView struct {
	FactorSource string `json:"factorSource"`
	Path         string `json:"path"`
	PublicKey    string `json:"publicKey"`
	Signature    string `json:"signature"`
}

// neglectView is one printed neglected factor source.
type neglectView struct {
	FactorSource string `json:"factorSource"`
	Reason       string `json:"reason"`
}

// resultView is the printed result of a sign run.
type resultView struct {
	Successful []payloadView `json:"successful"`
	Failed     []payloadView `json:"failed"`
	Neglected  []neglectView `json:"neglected"`
}

// outcomeView converts an outcome for printing.
func outcomeView(o signing.SignaturesOutcome[signing.TransactionIntent]) resultView {
	return resultView{
		Successful: payloadViews(o.Successful),
		Failed:     payloadViews(o.Failed),
		Neglected:  neglectViews(o.Neglected),
	}
}

// payloadViews converts petition outcomes for printing.
func payloadViews(outcomes []signing.PetitionOutcome[signing.TransactionIntent]) []payloadView {
	views := make([]payloadView, 0, len(outcomes))

	for _, po := range outcomes {
		v := payloadView{
			Payload:    po.PayloadID.String(),
			Nonce:      po.Signable.Nonce,
			Signatures: make([]signatureView, 0, len(po.Signatures)),
			Neglected:  neglectViews(po.Neglected),
		}

		for _, s := range po.Signatures {
			v.Signatures = append(v.Signatures, signatureView{
				FactorSource: s.FactorSourceID().String(),
				Path:         s.Instance.Path().String(),
				PublicKey:    s.Signature.PublicKey.Hex(),
				Signature:    fmt.Sprintf("%x", s.Signature.Signature),
			})
		}

		views = append(views, v)
	}

	return views
}

// neglectViews converts neglected factors for printing.
func neglectViews(neglected []signing.NeglectedFactor) []neglectView {
	views := make([]neglectView, 0, len(neglected))
	for _, n := range neglected {
		views = append(views, neglectView{FactorSource: n.FactorSourceID.String(), Reason: n.Reason.String()})
	}
	return views
}

func init() {
	f := signCmd.Flags()
	f.BoolVar(&signFlags.keepGoing, "keep-going", false, "Ask every kind even once all intents are signed")
	f.BoolVar(&signFlags.stopOnFail, "stop-on-failure", false, "Stop as soon as one intent cannot be signed")
	f.StringVar(&signFlags.metricsFile, "metrics-file", "", "Write run metrics in the Prometheus text format")
}

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/yaml"
)

const redacted = "<redacted>"

var renderShowSecrets bool

var renderCmd = &cobra.Command{
	Use:   "render SERVER_ID",
	Short: "Print the manifests a server would be deployed with",
	Long: `Prints the Secret, registry credential, Service and Deployment that
"kubemcp start SERVER_ID" would create, as a multi-document YAML stream.
Nothing is sent to the cluster.

Secret values are replaced by <redacted> unless --show-secrets is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	inv, err := application.Inventory()
	if err != nil {
		return err
	}
	in, err := inv.StartInput(args[0])
	if err != nil {
		return err
	}

	objs, err := application.Manager().Manifests(in.Record, in.SecretValues, in.CatalogEnv)
	if err != nil {
		return err
	}
	return writeManifests(cmd.OutOrStdout(), objs, renderShowSecrets)
}

func writeManifests(w io.Writer, objs []client.Object, showSecrets bool) error {
	for i, obj := range objs {
		if s, ok := obj.(*corev1.Secret); ok && !showSecrets {
			obj = redactSecret(s)
		}
		data, err := yaml.Marshal(obj)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", obj.GetName(), err)
		}
		if i > 0 {
			if _, err := io.WriteString(w, "---\n"); err != nil {
				return err
			}
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

func redactSecret(s *corev1.Secret) *corev1.Secret {
	out := s.DeepCopy()
	out.StringData = make(map[string]string, len(out.Data))
	for k := range out.Data {
		out.StringData[k] = redacted
	}
	out.Data = nil
	return out
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().BoolVar(&renderShowSecrets, "show-secrets", false, "Print secret values instead of redacting them")
}

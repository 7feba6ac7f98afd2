/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package channel

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSelfSigned(t *testing.T, dir string) (certPath, keyPath string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "broker.test"},
		DNSNames:              []string{"broker.test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")

	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))

	return certPath, keyPath
}

func TestTLSConfigDisabled(t *testing.T) {
	cfg, err := TLSConfig{}.Build()
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestTLSConfigMutual(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeSelfSigned(t, dir)

	cfg, err := TLSConfig{CAFile: certPath, CertFile: certPath, KeyFile: keyPath, ServerName: "broker.test"}.Build()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Len(t, cfg.Certificates, 1)
	assert.NotNil(t, cfg.RootCAs)
	assert.Equal(t, "broker.test", cfg.ServerName)
}

func TestTLSConfigErrors(t *testing.T) {
	dir := t.TempDir()
	certPath, _ := writeSelfSigned(t, dir)

	garbage := filepath.Join(dir, "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a certificate"), 0o600))

	_, err := TLSConfig{CAFile: garbage}.Build()
	require.ErrorIs(t, err, ErrCAParsingFailed)

	_, err = TLSConfig{CertFile: certPath}.Build()
	require.ErrorIs(t, err, errIncompleteKeyPair)

	_, err = TLSConfig{CAFile: filepath.Join(dir, "missing.pem")}.Build()
	require.Error(t, err)
}

func TestPushChannelsRejectBadTLS(t *testing.T) {
	bad := TLSConfig{CAFile: filepath.Join(t.TempDir(), "missing.pem")}

	_, err := NewNATSSubscriber(NATSConfig{URL: "nats://127.0.0.1:4222", DeviceID: "dev-1", TLS: bad}, nil, nil)
	require.Error(t, err)

	_, err = NewMQTTSubscriber(MQTTConfig{Broker: "ssl://127.0.0.1:8883", DeviceID: "dev-1", TLS: bad}, nil, nil)
	require.Error(t, err)
}

package service

import (
	"fmt"
	"os/exec"
)

// Provisioner creates an external messaging credential for a newly
// registered device. Provisioning is best-effort by contract; callers
// log failures and move on.
type Provisioner interface {
	Provision(udid, apiKey string) error
}

// MosquittoProvisioner writes broker credentials with the
// mosquitto_passwd tool when it is installed on the host.
type MosquittoProvisioner struct {
	passwordFile string
}

func NewMosquittoProvisioner(passwordFile string) *MosquittoProvisioner {
	return &MosquittoProvisioner{passwordFile: passwordFile}
}

func (p *MosquittoProvisioner) Provision(udid, apiKey string) error {
	tool, err := exec.LookPath("mosquitto_passwd")
	if err != nil {
		return fmt.Errorf("mosquitto_passwd not available: %w", err)
	}

	output, err := exec.Command(tool, "-b", p.passwordFile, udid, apiKey).CombinedOutput()
	if err != nil {
		return fmt.Errorf("mosquitto_passwd failed: %w (%s)", err, output)
	}
	return nil
}

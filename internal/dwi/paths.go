package dwi

const (
	// PipelineName identifies the stage set in reports and the history ledger.
	PipelineName = "dwi"

	// FlagBedpostx gates the hours-long fiber orientation sampling sub-step.
	FlagBedpostx = "bedpostx"
)

// Artifact name templates under the working directory. {subject} expands to
// the subject identifier at run time. FSL tools take image basenames and
// append the .nii.gz extension themselves, so most outputs appear twice: the
// base passed on the command line and the file the checkpoint looks for.
const (
	RawDWI    = "{subject}_dwi.nii.gz"
	BvecsFile = "bvecs"
	BvalsFile = "bvals"

	correctedBase = "{subject}_dwi_ecc"
	Corrected     = correctedBase + ".nii.gz"

	brainBase = "{subject}_nodif_brain"
	maskBase  = brainBase + "_mask"
	BrainMask = maskBase + ".nii.gz"

	tensorBase = "{subject}_dti"
	TensorFA   = tensorBase + "_FA.nii.gz"

	BedpostDir   = "bedpost"
	BedpostData  = BedpostDir + "/data.nii.gz"
	BedpostMask  = BedpostDir + "/nodif_brain_mask.nii.gz"
	BedpostBvecs = BedpostDir + "/bvecs"
	BedpostBvals = BedpostDir + "/bvals"

	// bedpostx writes next to its input directory, appending the .bedpostX
	// suffix itself.
	BedpostResultDir = BedpostDir + ".bedpostX"
	BedpostResult    = BedpostResultDir + "/merged_th1samples.nii.gz"
)

// RequiredInputs lists the caller-supplied artifacts that must exist before
// any stage is constructed: the raw diffusion volume and the gradient tables.
func RequiredInputs() []string {
	return []string{RawDWI, BvecsFile, BvalsFile}
}

package image03

// Row is one line of the NDA image03 submission, describing a single image.
// Field order is column order. Columns NDA added for microscopy on
// 2019-12-30 (https://nda.nih.gov/data_structure_history.html?short_name=image03)
// are carried but always empty.
type Row struct {
	SubjectKey                string `csv:"subjectkey"`
	SrcSubjectID              string `csv:"src_subject_id"`
	InterviewDate             string `csv:"interview_date"`
	InterviewAge              string `csv:"interview_age"`
	Gender                    string `csv:"gender"`
	ImageFile                 string `csv:"image_file"`
	ExperimentID              string `csv:"experiment_id"`
	ImageDescription          string `csv:"image_description"`
	ScanType                  string `csv:"scan_type"`
	ScanObject                string `csv:"scan_object"`
	ImageFileFormat           string `csv:"image_file_format"`
	ImageModality             string `csv:"image_modality"`
	ScannerManufacturerPD     string `csv:"scanner_manufacturer_pd"`
	ScannerTypePD             string `csv:"scanner_type_pd"`
	ScannerSoftwareVersionsPD string `csv:"scanner_software_versions_pd"`
	MagneticFieldStrength     string `csv:"magnetic_field_strength"`
	MRIEchoTimePD             string `csv:"mri_echo_time_pd"`
	FlipAngle                 string `csv:"flip_angle"`
	ReceiveCoil               string `csv:"receive_coil"`
	ImageOrientation          string `csv:"image_orientation"`
	TransformationPerformed   string `csv:"transformation_performed"`
	TransformationType        string `csv:"transformation_type"`
	ImageNumDimensions        string `csv:"image_num_dimensions"`
	ImageExtent1              string `csv:"image_extent1"`
	ImageExtent2              string `csv:"image_extent2"`
	ImageExtent3              string `csv:"image_extent3"`
	ImageExtent4              string `csv:"image_extent4"`
	Extent4Type               string `csv:"extent4_type"`
	AcquisitionMatrix         string `csv:"acquisition_matrix"`
	ImageResolution1          string `csv:"image_resolution1"`
	ImageResolution2          string `csv:"image_resolution2"`
	ImageResolution3          string `csv:"image_resolution3"`
	ImageSliceThickness       string `csv:"image_slice_thickness"`
	PhotometInterpret         string `csv:"photomet_interpret"`
	ImageResolution4          string `csv:"image_resolution4"`
	ImageUnit1                string `csv:"image_unit1"`
	ImageUnit2                string `csv:"image_unit2"`
	ImageUnit3                string `csv:"image_unit3"`
	MRIRepetitionTimePD       string `csv:"mri_repetition_time_pd"`
	SliceTiming               string `csv:"slice_timing"`
	ImageUnit4                string `csv:"image_unit4"`
	MRIFieldOfViewPD          string `csv:"mri_field_of_view_pd"`
	PatientPosition           string `csv:"patient_position"`
	Visit                     string `csv:"visit"`
	DataFile2                 string `csv:"data_file2"`
	DataFile2Type             string `csv:"data_file2_type"`
	BvecFile                  string `csv:"bvecfile"`
	BvalFile                  string `csv:"bvalfile"`
	BvekBvalFiles             string `csv:"bvek_bval_files"`

	ProcDate               string `csv:"procdate"`
	VisNum                 string `csv:"visnum"`
	Manifest               string `csv:"manifest"`
	EmissionWavelength     string `csv:"emission_wavelingth"`
	ObjectiveMagnification string `csv:"objective_magnification"`
	ObjectiveNA            string `csv:"objective_na"`
	Immersion              string `csv:"immersion"`
	ExposureTime           string `csv:"exposure_time"`
	CameraSN               string `csv:"camera_sn"`
	BlockNumber            string `csv:"block_number"`
	Level                  string `csv:"level"`
	CutThickness           string `csv:"cut_thickness"`
	Stain                  string `csv:"stain"`
	StainDetails           string `csv:"stain_details"`
	PipelineStage          string `csv:"pipeline_stage"`
	Deconvolved            string `csv:"deconvolved"`
	DeconSoftware          string `csv:"decon_software"`
	DeconMethod            string `csv:"decon_method"`
	PSFType                string `csv:"psf_type"`
	PSFFile                string `csv:"psf_file"`
	DeconSNR               string `csv:"decon_snr"`
	DeconIterations        string `csv:"decon_iterations"`
	MicroTemplateName      string `csv:"micro_temmplate_name"`
	InStack                string `csv:"in_stack"`
	DeconTemplateName      string `csv:"decon_template_name"`
	Stack                  string `csv:"stack"`
	Slices                 string `csv:"slices"`
	SliceNumber            string `csv:"slice_number"`
	SliceThickness         string `csv:"slice_thickness"`
	TypeOfMicroscopy       string `csv:"type_of_microscopy"`

	DeviceSerialNumber string `csv:"deviceserialnumber"`
	CommentsMisc       string `csv:"comments_misc"`
	ImageThumbnailFile string `csv:"image_thumbnail_file"`
}
